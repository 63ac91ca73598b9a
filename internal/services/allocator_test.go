package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/store/memory"
	"expensetracker/internal/store/query"
)

func finalized(id int, user string, mt core.MovementType) core.Movement {
	return core.Movement{
		TransactionID: id,
		User:          user,
		Group:         "G1",
		MovementType:  mt,
		Amount:        decimal.NewFromInt(100),
		Category:      core.CategoryMonthlyIncome,
		CreatedAt:     testNow,
		Status:        core.StatusFinalized,
	}
}

func TestAllocatorNextID(t *testing.T) {
	g := core.Group{ID: "G1"}
	ctx := context.Background()

	empty := NewAllocator(memory.New())
	if got, _ := empty.NextID(ctx, g, "DEPTO 1", core.Income); got != 0 {
		t.Errorf("empty income = %d, want 0", got)
	}
	if got, _ := empty.NextID(ctx, g, "DEPTO 1", core.Expense); got != core.ExpenseIDFloor {
		t.Errorf("empty expense = %d, want %d", got, core.ExpenseIDFloor)
	}

	st := memory.New()
	for _, m := range []core.Movement{
		finalized(40, "DEPTO 3", core.Income),
		finalized(41, "DEPTO 1", core.Income),
		finalized(10005, "DEPTO 0", core.Expense),
	} {
		if err := st.InsertOne(ctx, m); err != nil {
			t.Fatal(err)
		}
	}
	pending := finalized(core.PendingTransactionID, "DEPTO 9", core.Income)
	pending.Status = core.StatusPending
	pending.Category = core.CategoryPending
	_ = st.InsertOne(ctx, pending)

	a := NewAllocator(st)
	cases := []struct {
		name string
		user string
		mt   core.MovementType
		want int
	}{
		{"owner of last income id keeps it", "DEPTO 1", core.Income, 40},
		{"other user moves past it", "DEPTO 2", core.Income, 41},
		{"management never reuses", "DEPTO 0", core.Expense, 10005},
		{"expense for other user", "DEPTO 1", core.Expense, 10005},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.NextID(ctx, g, tc.user, tc.mt)
			if err != nil {
				t.Fatalf("NextID: %v", err)
			}
			if got != tc.want {
				t.Errorf("NextID(%s, %s) = %d, want %d", tc.user, tc.mt, got, tc.want)
			}
		})
	}

	if _, err := a.NextID(ctx, g, "DEPTO 1", core.Investment); !errors.Is(err, core.ErrValidation) {
		t.Errorf("investment err = %v, want ErrValidation", err)
	}
}

func TestAllocatorExplicitManagementRole(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	_ = st.InsertOne(ctx, finalized(10, "ADMIN", core.Income))

	a := NewAllocator(st)
	g := core.Group{ID: "G1", Management: []string{"ADMIN"}}
	if got, _ := a.NextID(ctx, g, "ADMIN", core.Income); got != 10 {
		t.Errorf("management user NextID = %d, want 10", got)
	}
	_ = st.InsertOne(ctx, finalized(11, "DEPTO 0", core.Income))
	if got, _ := a.NextID(ctx, g, "DEPTO 0", core.Income); got != 10 {
		t.Errorf("DEPTO 0 is an ordinary resident here, NextID = %d, want 10", got)
	}
}

// racingStore lets a competing writer take the first id Allocate tries.
type racingStore struct {
	*memory.Store
	raced bool
}

func (r *racingStore) InsertOne(ctx context.Context, m core.Movement) error {
	if !r.raced {
		r.raced = true
		rival := m
		rival.User = "DEPTO 7"
		if err := r.Store.InsertOne(ctx, rival); err != nil {
			return err
		}
	}
	return r.Store.InsertOne(ctx, m)
}

func TestAllocateRetriesWhenIDTaken(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{Store: memory.New()}
	a := NewAllocator(st)
	g := core.Group{ID: "G1"}

	m := finalized(0, "DEPTO 1", core.Income)
	id, err := a.Allocate(ctx, g, "DEPTO 1", core.Income, func(id int) error {
		m.TransactionID = id
		return st.InsertOne(ctx, m)
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id != 2 {
		t.Errorf("Allocate id = %d, want 2 after losing 1", id)
	}
	n, _ := st.Count(ctx, query.New().Eq(query.FieldTransactionID, 1))
	if n != 1 {
		t.Errorf("id 1 holders = %d, want only the rival", n)
	}
}

func TestAllocateGivesUp(t *testing.T) {
	a := NewAllocator(memory.New())
	calls := 0
	_, err := a.Allocate(context.Background(), core.Group{ID: "G1"}, "DEPTO 1", core.Expense, func(int) error {
		calls++
		return core.ErrTransactionIDTaken
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if calls != MaxAllocationAttempts {
		t.Errorf("attempts = %d, want %d", calls, MaxAllocationAttempts)
	}
}

