package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/query"
)

// MaxAllocationAttempts bounds the optimistic retry loop in Allocate.
const MaxAllocationAttempts = 5

// Allocator hands out range-partitioned transaction ids.
//
// Income ids live in [0, 10000) without the pending sentinel 9999, expense
// ids above 10000. When the most recent id of the range belongs to the
// requesting user, and that user is not the group's management account,
// the user keeps reusing it: consecutive payments by one resident share a
// receipt number.
type Allocator struct {
	movements store.Movements
}

func NewAllocator(m store.Movements) *Allocator {
	return &Allocator{movements: m}
}

// NextID returns the id the next movement should be written with, minus one.
func (a *Allocator) NextID(ctx context.Context, g core.Group, user string, mt core.MovementType) (int, error) {
	f := query.New().Eq(query.FieldGroup, g.ID)
	var floor int
	switch mt {
	case core.Income:
		f.Where(query.FieldTransactionID, query.OpLt, core.ExpenseIDFloor).
			Where(query.FieldTransactionID, query.OpNin, []any{core.PendingTransactionID})
		floor = 0
	case core.Expense:
		f.Where(query.FieldTransactionID, query.OpGt, core.ExpenseIDFloor)
		floor = core.ExpenseIDFloor
	default:
		return 0, fmt.Errorf("%w: cannot allocate an id for movement type %q", core.ErrValidation, mt)
	}

	last, ok, err := a.movements.FindOne(ctx, f, query.Sort{Field: query.FieldTransactionID, Ascending: false})
	if err != nil {
		return 0, fmt.Errorf("find last transaction: %w", err)
	}
	if !ok {
		return floor, nil
	}
	if last.User == user && !g.IsManagement(user) {
		return last.TransactionID - 1, nil
	}
	return last.TransactionID, nil
}

// Allocate computes the next id and hands it to write. When write reports
// core.ErrTransactionIDTaken, a concurrent caller won the id and the
// allocation is retried.
func (a *Allocator) Allocate(ctx context.Context, g core.Group, user string, mt core.MovementType, write func(id int) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		next, err := a.NextID(ctx, g, user, mt)
		if err != nil {
			return 0, err
		}
		id := next + 1
		err = write(id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, core.ErrTransactionIDTaken) {
			return 0, err
		}
		lastErr = err
		slog.WarnContext(ctx, "Transaction id taken, retrying allocation",
			"group", g.ID,
			"user", user,
			"transaction_id", id,
			"attempt", attempt)
	}
	return 0, fmt.Errorf("%w: allocation gave up after %d attempts: %w", core.ErrConflict, MaxAllocationAttempts, lastErr)
}
