package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

func income(user, month string) NewTransaction {
	return NewTransaction{
		Group:        "G1",
		User:         user,
		MovementType: "income",
		Amount:       decimal.NewFromInt(120),
		Category:     core.CategoryMonthlyIncome,
		Month:        month,
		Year:         "2024",
	}
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestServices(t)

	m, err := svc.Transactions.Create(ctx, admin, income("DEPTO 1", "3"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.TransactionID != 1 || m.Name != "APORTACION 3 2024" || m.Status != core.StatusFinalized {
		t.Errorf("created = %+v", m)
	}

	if _, err := svc.Transactions.Create(ctx, admin, income("DEPTO 1", "3")); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}

	exp := NewTransaction{
		Group: "G1", User: "DEPTO 0", MovementType: "expense",
		Amount: decimal.RequireFromString("45.50"), Category: "LIMPIEZA", Month: "3", Year: "2024",
	}
	e, err := svc.Transactions.Create(ctx, admin, exp)
	if err != nil {
		t.Fatalf("Create expense: %v", err)
	}
	if e.TransactionID != core.ExpenseIDFloor+1 {
		t.Errorf("expense id = %d, want %d", e.TransactionID, core.ExpenseIDFloor+1)
	}
	exp.Name = "Escobas"
	e2, err := svc.Transactions.Create(ctx, admin, exp)
	if err != nil {
		t.Fatalf("Create second expense: %v", err)
	}
	if e2.TransactionID != core.ExpenseIDFloor+2 {
		t.Errorf("management expense id = %d, want %d", e2.TransactionID, core.ExpenseIDFloor+2)
	}

	if got := pub.types(); len(got) != 3 || got[0] != amqp.EventTransactionCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateTransactionRejects(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestServices(t)

	cases := []struct {
		name   string
		caller core.Owner
		mutate func(*NewTransaction)
		want   error
	}{
		{"user token", reader, func(*NewTransaction) {}, core.ErrForbidden},
		{"out of scope", outsider, func(*NewTransaction) {}, core.ErrForbidden},
		{"unknown type", admin, func(r *NewTransaction) { r.MovementType = "gift" }, core.ErrValidation},
		{"pending category", admin, func(r *NewTransaction) { r.Category = core.CategoryPending }, core.ErrValidation},
		{"negative amount", admin, func(r *NewTransaction) { r.Amount = decimal.NewFromInt(-1) }, core.ErrValidation},
		{"empty user", admin, func(r *NewTransaction) { r.User = " " }, core.ErrValidation},
		{"bad month", admin, func(r *NewTransaction) { r.Month = "0" }, core.ErrValidation},
		{"investment", admin, func(r *NewTransaction) { r.MovementType = "investment" }, core.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := income("DEPTO 1", "3")
			tc.mutate(&req)
			if _, err := svc.Transactions.Create(ctx, tc.caller, req); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateAndDeleteSharedID(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newTestServices(t)

	for _, month := range []string{"2", "3"} {
		m, err := svc.Transactions.Create(ctx, admin, income("DEPTO 1", month))
		if err != nil {
			t.Fatal(err)
		}
		if m.TransactionID != 1 {
			t.Fatalf("continuity id = %d, want 1", m.TransactionID)
		}
	}

	amount := decimal.NewFromInt(150)
	patch := TransactionPatch{Amount: &amount}
	if _, err := svc.Transactions.Update(ctx, admin, "G1", 1, "", patch); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("ambiguous update err = %v, want ErrConflict", err)
	}
	updated, err := svc.Transactions.Update(ctx, admin, "G1", 1, "APORTACION 3 2024", patch)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Amount.Equal(amount) {
		t.Errorf("amount = %s, want %s", updated.Amount, amount)
	}
	stored, _, _ := st.FindOne(ctx, query.New().Eq(query.FieldName, "APORTACION 3 2024"))
	if !stored.Amount.Equal(amount) {
		t.Errorf("stored amount = %s, want %s", stored.Amount, amount)
	}

	if _, err := svc.Transactions.Update(ctx, admin, "G1", 1, "APORTACION 3 2024", TransactionPatch{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty patch err = %v, want ErrValidation", err)
	}
	moved := "DEPTO 2"
	_, err = svc.Transactions.Update(ctx, admin, "G1", 1, "APORTACION 3 2024", TransactionPatch{User: &moved})
	if !errors.Is(err, core.ErrConflict) || !errors.Is(err, core.ErrTransactionIDTaken) {
		t.Errorf("reassigning a shared id err = %v, want ErrConflict", err)
	}
	if stored, _, _ := st.FindOne(ctx, query.New().Eq(query.FieldName, "APORTACION 3 2024")); stored.User != "DEPTO 1" {
		t.Errorf("user after rejected update = %q, want DEPTO 1", stored.User)
	}
	if _, err := svc.Transactions.Update(ctx, admin, "G1", 77, "", patch); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing update err = %v, want ErrNotFound", err)
	}

	if err := svc.Transactions.Delete(ctx, admin, "G1", 1, ""); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("ambiguous delete err = %v, want ErrConflict", err)
	}
	if err := svc.Transactions.Delete(ctx, admin, "G1", 1, "APORTACION 2 2024"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := st.Count(ctx, query.New()); n != 1 {
		t.Errorf("movements left = %d, want 1", n)
	}
	if err := svc.Transactions.Delete(ctx, admin, "G1", 1, "APORTACION 2 2024"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	got := pub.types()
	if got[len(got)-1] != amqp.EventTransactionDeleted {
		t.Errorf("last event = %s", got[len(got)-1])
	}
}

func TestQueryTransactions(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestServices(t)

	for _, req := range []NewTransaction{income("DEPTO 1", "2"), income("DEPTO 1", "3"), income("DEPTO 2", "3")} {
		if _, err := svc.Transactions.Create(ctx, admin, req); err != nil {
			t.Fatal(err)
		}
	}
	foreign := finalized(5, "X", core.Income)
	foreign.Group = "G2"
	_ = st.InsertOne(ctx, foreign)

	res, err := svc.Transactions.Query(ctx, admin, QueryRequest{Filter: []byte(`{"user": "DEPTO 1"}`)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, want 2", res.Count)
	}

	res, err = svc.Transactions.Query(ctx, admin, QueryRequest{
		Filter:        []byte(`{"transaction_id": {"$gte": 1}}`),
		Projection:    "transaction_id,user",
		SortKey:       query.FieldTransactionID,
		SortAscending: true,
		Limit:         2,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("limited count = %d, want 2", res.Count)
	}
	if _, ok := res.Items[0][query.FieldAmount]; ok {
		t.Errorf("projection leaked amount: %v", res.Items[0])
	}
	if res.Items[0][query.FieldTransactionID] != 1 {
		t.Errorf("first item = %v, want transaction 1", res.Items[0])
	}

	res, err = svc.Transactions.Query(ctx, admin, QueryRequest{Filter: []byte(`{"group": "G2"}`)})
	if err != nil || res.Count != 0 {
		t.Errorf("foreign group query = %+v, %v", res, err)
	}
	res, err = svc.Transactions.Query(ctx, outsider, QueryRequest{})
	if err != nil || res.Count != 1 {
		t.Errorf("outsider query = %+v, %v", res, err)
	}

	for name, req := range map[string]QueryRequest{
		"limit":      {Limit: MaxQueryLimit + 1},
		"skip":       {Skip: -1},
		"operator":   {Filter: []byte(`{"amount": {"$regex": "1"}}`)},
		"field":      {Filter: []byte(`{"color": "red"}`)},
		"projection": {Projection: "color"},
	} {
		if _, err := svc.Transactions.Query(ctx, admin, req); !errors.Is(err, core.ErrValidation) {
			t.Errorf("%s err = %v, want ErrValidation", name, err)
		}
	}
}

func TestNextIDPreview(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestServices(t)

	if id, err := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 1", "income"); err != nil || id != 1 {
		t.Fatalf("empty income preview = %d, %v", id, err)
	}
	if id, err := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 0", "expense"); err != nil || id != core.ExpenseIDFloor+1 {
		t.Fatalf("empty expense preview = %d, %v", id, err)
	}

	if _, err := svc.Transactions.Create(ctx, admin, income("DEPTO 1", "3")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id, _ := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 1", "income"); id != 1 {
		t.Errorf("same user preview = %d, want 1", id)
	}
	if id, _ := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 2", "income"); id != 2 {
		t.Errorf("other user preview = %d, want 2", id)
	}

	if _, err := svc.Transactions.NextID(ctx, outsider, "G1", "DEPTO 1", "income"); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("outsider err = %v", err)
	}
	if _, err := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 1", "investment"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("investment err = %v", err)
	}
	if _, err := svc.Transactions.NextID(ctx, reader, "G1", "DEPTO 1", "gift"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad type err = %v", err)
	}
}

func TestServicesLogThroughLedgerLogger(t *testing.T) {
	_, st, _ := newTestServices(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With("component", "ledger")
	svc := New(Deps{Store: st, Logger: logger, Now: func() time.Time { return testNow }})

	if _, err := svc.Transactions.Create(context.Background(), admin, income("DEPTO 1", "3")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Transaction created") || !strings.Contains(out, "component=ledger") {
		t.Errorf("ledger log = %q", out)
	}
}
