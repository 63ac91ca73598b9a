package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

func seedReceipts(t *testing.T, svc *Services) {
	t.Helper()
	ctx := context.Background()
	for _, req := range []NewTransaction{income("DEPTO 1", "2"), income("DEPTO 1", "3"), income("DEPTO 2", "3")} {
		if _, err := svc.Transactions.Create(ctx, admin, req); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReceiptsGroupsByTransactionID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestServices(t)
	seedReceipts(t, svc)

	rs, err := svc.Reports.Receipts(ctx, reader, "G1", 1, 5)
	if err != nil {
		t.Fatalf("Receipts: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("receipts = %d, want 2", len(rs))
	}
	if rs[0].TransactionID != 1 || !rs[0].Amount.Equal(decimal.NewFromInt(240)) {
		t.Errorf("first receipt = %+v", rs[0])
	}
	if rs[0].Concept != "APORTACION 2 2024, APORTACION 3 2024" {
		t.Errorf("concept = %q", rs[0].Concept)
	}
	if rs[1].User != "DEPTO 2" {
		t.Errorf("second receipt user = %s", rs[1].User)
	}

	var buf bytes.Buffer
	if err := svc.Reports.WriteReceiptsPDF(ctx, &buf, reader, "G1", 1, 2); err != nil {
		t.Fatalf("WriteReceiptsPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output is not a PDF")
	}

	r, err := svc.Reports.ReceiptFor(ctx, "G1", 2)
	if err != nil || r.User != "DEPTO 2" {
		t.Errorf("ReceiptFor = %+v, %v", r, err)
	}
	if _, err := svc.Reports.ReceiptFor(ctx, "G1", 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing receipt err = %v, want ErrNotFound", err)
	}
}

func TestReceiptsRangeErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestServices(t)
	seedReceipts(t, svc)

	if _, err := svc.Reports.Receipts(ctx, reader, "G1", 5, 1); !errors.Is(err, core.ErrValidation) {
		t.Errorf("reversed range err = %v, want ErrValidation", err)
	}
	if _, err := svc.Reports.Receipts(ctx, reader, "G1", 1, 1+maxReceiptRange); !errors.Is(err, core.ErrValidation) {
		t.Errorf("wide range err = %v, want ErrValidation", err)
	}
	if _, err := svc.Reports.Receipts(ctx, reader, "G1", 100, 200); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("empty range err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Reports.Receipts(ctx, outsider, "G1", 1, 2); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("outsider err = %v, want ErrForbidden", err)
	}
}

func TestBalanceStatement(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestServices(t)
	seedReceipts(t, svc)
	_, err := svc.Transactions.Create(ctx, admin, NewTransaction{
		Group: "G1", User: "DEPTO 0", MovementType: "expense", Amount: decimal.NewFromInt(80),
		Category: "JARDIN", Month: "3", Year: "2024", Name: "Poda",
	})
	if err != nil {
		t.Fatal(err)
	}

	b, err := svc.Reports.Balance(ctx, reader, "G1", "3", "2024")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Month != "03" || !b.MonthlyIncome.Equal(decimal.NewFromInt(360)) || !b.MonthlyExpense.Equal(decimal.NewFromInt(80)) {
		t.Errorf("balance = %+v", b)
	}
	if len(b.Categories) != 1 || b.Categories[0].Name != "JARDIN" {
		t.Errorf("categories = %+v", b.Categories)
	}

	empty, err := svc.Reports.Balance(ctx, reader, "G1", "1", "2024")
	if err != nil {
		t.Fatalf("Balance for a quiet month: %v", err)
	}
	if !empty.MonthlyIncome.IsZero() || !empty.Summary.TotalAvailable.Equal(decimal.NewFromInt(280)) {
		t.Errorf("quiet month = %+v", empty)
	}

	var buf bytes.Buffer
	if err := svc.Reports.WriteBalancePDF(ctx, &buf, reader, "G1", "3", "2024"); err != nil {
		t.Fatalf("WriteBalancePDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty balance pdf")
	}
}
