package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"expensetracker/internal/aggregation"
	"expensetracker/internal/core"
	"expensetracker/internal/receipts"
	"expensetracker/internal/store/query"
)

// maxReceiptRange caps how many folios one request may render.
const maxReceiptRange = 500

// ReportService renders receipts and balance statements.
type ReportService struct {
	*base
	summary *SummaryService
}

// Receipts collects the receipts for transaction ids start..end inclusive.
// Ids without movements are skipped.
func (s *ReportService) Receipts(ctx context.Context, caller core.Owner, group string, start, end int) ([]receipts.Receipt, error) {
	if err := authorize(caller, group, false); err != nil {
		return nil, err
	}
	if start > end || end-start >= maxReceiptRange {
		return nil, fmt.Errorf("%w: invalid receipt range %d..%d", core.ErrValidation, start, end)
	}

	f := query.New().
		Eq(query.FieldGroup, group).
		Where(query.FieldTransactionID, query.OpGte, start).
		Where(query.FieldTransactionID, query.OpLte, end).
		Eq(query.FieldRemoved, false)
	ms, err := s.store.Find(ctx, f, query.Options{Sort: []query.Sort{{Field: query.FieldTransactionID, Ascending: true}}})
	if err != nil {
		return nil, fmt.Errorf("load receipts: %w", err)
	}

	var (
		out   []receipts.Receipt
		batch []core.Movement
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		r, err := receipts.BuildReceipt(batch)
		if err != nil {
			return err
		}
		out = append(out, r)
		batch = batch[:0]
		return nil
	}
	for _, m := range ms {
		if m.IsPending() {
			continue
		}
		if len(batch) > 0 && batch[0].TransactionID != m.TransactionID {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, m)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no receipts between %d and %d", core.ErrNotFound, start, end)
	}
	return out, nil
}

// WriteReceiptsPDF renders the receipts of start..end to w.
func (s *ReportService) WriteReceiptsPDF(ctx context.Context, w io.Writer, caller core.Owner, group string, start, end int) error {
	rs, err := s.Receipts(ctx, caller, group, start, end)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Rendering receipts", "group", group, "from", start, "to", end, "count", len(rs))
	return receipts.WriteReceiptsPDF(w, rs)
}

// Balance builds the statement for month/year. A month without movements
// still renders with zero monthly figures.
func (s *ReportService) Balance(ctx context.Context, caller core.Owner, group, month, year string) (receipts.Balance, error) {
	period, err := core.ParsePeriod(month, year)
	if err != nil {
		return receipts.Balance{}, err
	}
	res, err := s.summary.ParsedData(ctx, caller, group, "")
	if err != nil {
		return receipts.Balance{}, err
	}
	monthData := res.ParsedData.Month(period.Label())
	if monthData.Empty() {
		monthData = aggregation.ParsedData{}
	}
	return receipts.NewBalance(group, year, fmt.Sprintf("%02d", int(period.Month())), monthData, res.GroupDetails), nil
}

func (s *ReportService) WriteBalancePDF(ctx context.Context, w io.Writer, caller core.Owner, group, month, year string) error {
	b, err := s.Balance(ctx, caller, group, month, year)
	if err != nil {
		return err
	}
	return receipts.WriteBalancePDF(w, b)
}

// ReceiptFor renders the receipt of a single finalized movement's id.
func (s *ReportService) ReceiptFor(ctx context.Context, group string, transactionID int) (receipts.Receipt, error) {
	ms, err := s.store.Find(ctx, query.New().
		Eq(query.FieldGroup, group).
		Eq(query.FieldTransactionID, transactionID).
		Eq(query.FieldRemoved, false), query.Options{})
	if err != nil {
		return receipts.Receipt{}, fmt.Errorf("load receipt %d: %w", transactionID, err)
	}
	r, err := receipts.BuildReceipt(ms)
	if errors.Is(err, core.ErrNotFound) {
		return receipts.Receipt{}, fmt.Errorf("%w: receipt %d", core.ErrNotFound, transactionID)
	}
	return r, err
}
