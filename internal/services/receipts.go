package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

const (
	// DefaultReceiptAmount is the contribution billed when none is given.
	DefaultReceiptAmount = 120
	// BatchCompleted is the completion signal of a batch run.
	BatchCompleted = "Completado"

	duplicateCheckLimit = 8
)

type (
	BatchRequest struct {
		Group    string           `json:"group_id"`
		Month    string           `json:"month"`
		Year     string           `json:"year"`
		Category string           `json:"category,omitempty"`
		Amount   *decimal.Decimal `json:"amount,omitempty"`
		Comments string           `json:"comments,omitempty"`
	}

	BatchResult struct {
		Status  string   `json:"status"`
		Created int      `json:"created"`
		Skipped []string `json:"skipped"`
	}

	PayRequest struct {
		Group string `json:"group_id"`
		User  string `json:"user_id"`
		Name  string `json:"name,omitempty"`
		Month string `json:"month,omitempty"`
		Year  string `json:"year,omitempty"`
	}
)

// ReceiptService creates pending contribution receipts and settles them.
type ReceiptService struct {
	*base
	alloc *Allocator
}

// pendingFilter selects pending receipts through the sentinel view, which
// matches both tagged and legacy records.
func pendingFilter(group, user string) query.Filter {
	return query.New().
		Eq(query.FieldGroup, group).
		Eq(query.FieldUser, user).
		Eq(query.FieldMovementType, string(core.Income)).
		Eq(query.FieldTransactionID, core.PendingTransactionID).
		Eq(query.FieldCategory, core.CategoryPending).
		Eq(query.FieldRemoved, false)
}

// CreatePendingBatch bills every group member for a period. Members that
// already paid or already hold a pending receipt for it are skipped, so
// repeated runs are no-ops.
func (s *ReceiptService) CreatePendingBatch(ctx context.Context, caller core.Owner, req BatchRequest) (BatchResult, error) {
	g, err := s.loadGroup(ctx, caller, req.Group, true)
	if err != nil {
		return BatchResult{}, err
	}
	period, err := core.ParsePeriod(req.Month, req.Year)
	if err != nil {
		return BatchResult{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = core.CategoryMonthlyIncome
	}
	if category != core.CategoryMonthlyIncome && category != core.CategoryExtraordinaryIncome {
		return BatchResult{}, fmt.Errorf("%w: receipts bill %s or %s, got %q",
			core.ErrValidation, core.CategoryMonthlyIncome, core.CategoryExtraordinaryIncome, category)
	}
	amount := decimal.NewFromInt(DefaultReceiptAmount)
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount.IsNegative() {
		return BatchResult{}, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrNegativeAmount)
	}
	name := core.ReceiptName(period, category)

	covered := make([]bool, len(g.Members))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(duplicateCheckLimit)
	for i, member := range g.Members {
		eg.Go(func() error {
			ok, err := s.isCovered(egCtx, g.ID, member, period, category, name)
			if err != nil {
				return fmt.Errorf("check receipt for %s: %w", member, err)
			}
			covered[i] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{Status: BatchCompleted, Skipped: []string{}}
	now := s.now().UTC()
	for i, member := range g.Members {
		if covered[i] {
			res.Skipped = append(res.Skipped, member)
			continue
		}
		m := core.Movement{
			TransactionID:   core.PendingTransactionID,
			User:            member,
			Group:           g.ID,
			MovementType:    core.Income,
			Amount:          amount,
			Category:        core.CategoryPending,
			CreatedAt:       now,
			Date:            period.Ptr(),
			Name:            name,
			Comments:        req.Comments,
			Status:          core.StatusPending,
			ReceiptCategory: category,
		}
		if err := s.store.InsertOne(ctx, m); err != nil {
			return res, fmt.Errorf("insert pending receipt for %s: %w", member, err)
		}
		res.Created++
		s.changed(ctx, amqp.EventReceiptCreated, m, caller.OwnerID)
	}

	s.log.InfoContext(ctx, "Pending receipts created",
		"group", g.ID,
		"period", period.Label(),
		"category", category,
		"created", res.Created,
		"skipped", len(res.Skipped))
	return res, nil
}

// isCovered reports whether member already paid the period or already
// holds its pending receipt.
func (s *ReceiptService) isCovered(ctx context.Context, group, member string, period core.Period, category, name string) (bool, error) {
	paid := query.New().
		Eq(query.FieldGroup, group).
		Eq(query.FieldUser, member).
		Eq(query.FieldDate, period.Time).
		Eq(query.FieldMovementType, string(core.Income)).
		Eq(query.FieldCategory, category).
		Eq(query.FieldRemoved, false)
	n, err := s.store.Count(ctx, paid)
	if err != nil || n > 0 {
		return n > 0, err
	}

	pending := pendingFilter(group, member).
		Eq(query.FieldDate, period.Time).
		Eq(query.FieldName, name)
	n, err = s.store.Count(ctx, pending)
	return n > 0, err
}

// MarkPaid finalizes one pending receipt: it receives a fresh income id,
// its final income category and a new creation time.
func (s *ReceiptService) MarkPaid(ctx context.Context, caller core.Owner, req PayRequest) (core.Movement, error) {
	g, err := s.loadGroup(ctx, caller, req.Group, true)
	if err != nil {
		return core.Movement{}, err
	}
	if strings.TrimSpace(req.User) == "" {
		return core.Movement{}, fmt.Errorf("%w: user_id is required", core.ErrValidation)
	}

	f := pendingFilter(g.ID, req.User)
	switch {
	case strings.TrimSpace(req.Name) != "":
		whereName(f, req.Name)
	case req.Month != "" && req.Year != "":
		period, err := core.ParsePeriod(req.Month, req.Year)
		if err != nil {
			return core.Movement{}, err
		}
		f.Eq(query.FieldDate, period.Time)
	default:
		return core.Movement{}, fmt.Errorf("%w: either name or month and year are required", core.ErrValidation)
	}

	matches, err := s.store.Find(ctx, f, query.Options{Limit: 2})
	if err != nil {
		return core.Movement{}, fmt.Errorf("find pending receipt: %w", err)
	}
	switch len(matches) {
	case 0:
		return core.Movement{}, fmt.Errorf("%w: no pending receipt for %s", core.ErrNotFound, req.User)
	case 1:
	default:
		return core.Movement{}, fmt.Errorf("%w: several pending receipts match, name is required", core.ErrConflict)
	}
	receipt := matches[0]

	now := s.now().UTC()
	finalCategory := receipt.FinalCategory()
	id, err := s.alloc.Allocate(ctx, g, req.User, core.Income, func(id int) error {
		n, err := s.store.UpdateOne(ctx, f, query.Update{
			query.FieldTransactionID: id,
			query.FieldCreatedAt:     now,
			query.FieldCategory:      finalCategory,
			query.FieldStatus:        string(core.StatusFinalized),
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: pending receipt for %s was settled concurrently", core.ErrNotFound, req.User)
		}
		return nil
	})
	if err != nil {
		return core.Movement{}, fmt.Errorf("mark receipt paid: %w", err)
	}

	receipt.TransactionID = id
	receipt.CreatedAt = now
	receipt.Category = finalCategory
	receipt.Status = core.StatusFinalized
	s.changed(ctx, amqp.EventReceiptPaid, receipt, caller.OwnerID)

	s.log.InfoContext(ctx, "Receipt marked as paid",
		"group", g.ID,
		"user", req.User,
		"transaction_id", id,
		"category", finalCategory)
	return receipt, nil
}

// Pending lists the receipts awaiting payment in a group, optionally
// narrowed to one user, oldest period first.
func (s *ReceiptService) Pending(ctx context.Context, caller core.Owner, group, user string) ([]core.Movement, error) {
	if _, err := s.loadGroup(ctx, caller, group, false); err != nil {
		return nil, err
	}
	f := query.New().
		Eq(query.FieldGroup, group).
		Eq(query.FieldTransactionID, core.PendingTransactionID).
		Eq(query.FieldCategory, core.CategoryPending).
		Eq(query.FieldRemoved, false)
	if user = strings.TrimSpace(user); user != "" {
		f.Eq(query.FieldUser, user)
	}
	ms, err := s.store.Find(ctx, f, query.Options{
		Sort: []query.Sort{{Field: query.FieldDate, Ascending: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("find pending receipts: %w", err)
	}
	return ms, nil
}
