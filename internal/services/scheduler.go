package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// SchedulerConfig holds configuration for the receipt scheduler
type SchedulerConfig struct {
	// Interval is how often every group is billed for the current month (default: 1h)
	Interval time.Duration

	// Amount is the monthly contribution billed to each member (default: DefaultReceiptAmount)
	Amount decimal.Decimal
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: time.Hour,
		Amount:   decimal.NewFromInt(DefaultReceiptAmount),
	}
}

// schedulerOwner is the identity batch runs are attributed to.
const schedulerOwner = "receipt-scheduler"

// ReceiptScheduler bills the monthly contribution of every group on a
// fixed interval. Batch creation is idempotent, so each tick only fills
// in receipts that are still missing for the month.
type ReceiptScheduler struct {
	svc    *Services
	config SchedulerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReceiptScheduler(svc *Services, config SchedulerConfig) *ReceiptScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.Amount.IsZero() {
		config.Amount = DefaultSchedulerConfig().Amount
	}
	return &ReceiptScheduler{svc: svc, config: config}
}

// Start begins the billing loop. Returns an error if already running.
func (s *ReceiptScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("receipt scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Receipt scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop gracefully stops the scheduler and waits for the current run.
func (s *ReceiptScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Receipt scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Receipt scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ReceiptScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ReceiptScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Bill immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce bills the current month in every group and returns the number
// of receipts created. A failing group is logged and skipped.
func (s *ReceiptScheduler) RunOnce(ctx context.Context) int {
	groups, err := s.svc.Receipts.store.ListGroups(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list groups", "error", err)
		return 0
	}

	period := core.PeriodOf(s.svc.Receipts.now())
	amount := s.config.Amount
	created := 0
	for _, g := range groups {
		if ctx.Err() != nil {
			return created
		}
		caller := core.Owner{OwnerID: schedulerOwner, Scope: []string{g.ID}, TokenType: core.TokenAdmin}
		res, err := s.svc.Receipts.CreatePendingBatch(ctx, caller, BatchRequest{
			Group:  g.ID,
			Month:  strconv.Itoa(int(period.Month())),
			Year:   strconv.Itoa(period.Year()),
			Amount: &amount,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Scheduled billing failed", "group", g.ID, "period", period.Label(), "error", err)
			continue
		}
		created += res.Created
	}
	if created > 0 {
		slog.InfoContext(ctx, "Scheduled billing run finished", "period", period.Label(), "groups", len(groups), "created", created)
	}
	return created
}
