// Package services implements the ledger operations: transaction id
// allocation, the receipt lifecycle, transactions, summaries, incidents
// and reports.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// EventPublisher announces movement changes. Implemented by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.MovementEvent) error
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Store  store.Store
	Events EventPublisher
	Now    func() time.Time
	// Logger receives the ledger logs. Defaults to slog.Default().
	Logger *slog.Logger
	// SummaryCacheSize and SummaryCacheTTL bound the parsed-data cache.
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

// Services is the set of ledger services built over one store.
type Services struct {
	Allocator    *Allocator
	Receipts     *ReceiptService
	Transactions *TransactionService
	Summary      *SummaryService
	Incidents    *IncidentService
	Reports      *ReportService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	b := &base{store: d.Store, events: d.Events, now: d.Now, log: d.Logger}
	alloc := NewAllocator(d.Store)
	summary := NewSummaryService(b, d.SummaryCacheSize, d.SummaryCacheTTL)
	b.invalidate = summary.InvalidateGroup

	return &Services{
		Allocator:    alloc,
		Receipts:     &ReceiptService{base: b, alloc: alloc},
		Transactions: &TransactionService{base: b, alloc: alloc},
		Summary:      summary,
		Incidents:    &IncidentService{base: b},
		Reports:      &ReportService{base: b, summary: summary},
	}
}

type base struct {
	store      store.Store
	events     EventPublisher
	now        func() time.Time
	log        *slog.Logger
	invalidate func(group string)
}

// authorize checks the caller scope and, for admin operations, the token type.
func authorize(caller core.Owner, group string, admin bool) error {
	if !caller.CanRead(group) {
		return fmt.Errorf("%w: group %s is outside the caller scope", core.ErrForbidden, group)
	}
	if admin && !caller.IsAdmin() {
		return fmt.Errorf("%w: admin token required", core.ErrForbidden)
	}
	return nil
}

// loadGroup resolves the group and checks the caller may act on it.
func (b *base) loadGroup(ctx context.Context, caller core.Owner, group string, admin bool) (core.Group, error) {
	if err := authorize(caller, group, admin); err != nil {
		return core.Group{}, err
	}
	g, err := b.store.FindGroup(ctx, group)
	if err != nil {
		return core.Group{}, fmt.Errorf("load group: %w", err)
	}
	return g, nil
}

// changed invalidates derived data and publishes the event. Publishing is
// best effort: the write already succeeded.
func (b *base) changed(ctx context.Context, t amqp.EventType, m core.Movement, actor string) {
	if b.invalidate != nil {
		b.invalidate(m.Group)
	}
	if b.events == nil {
		b.log.DebugContext(ctx, "Event publisher not configured, skipping event", "type", t)
		return
	}
	if err := b.events.Publish(ctx, amqp.NewMovementEvent(t, m, actor)); err != nil {
		b.log.ErrorContext(ctx, "Failed to publish movement event",
			"type", t,
			"group", m.Group,
			"transaction_id", m.TransactionID,
			"error", err)
	}
}
