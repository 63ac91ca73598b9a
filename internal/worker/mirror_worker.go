// Package worker consumes movement events and mirrors them outside the
// primary store: a spreadsheet ledger and an archive of receipt PDFs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/receipts"
	"expensetracker/internal/sheets"
)

// ReceiptSource renders the receipt of a finalized transaction id.
type ReceiptSource interface {
	ReceiptFor(ctx context.Context, group string, transactionID int) (receipts.Receipt, error)
}

// MirrorWorker handles movement events from AMQP
type MirrorWorker struct {
	ledger     sheets.LedgerWriter
	receipts   ReceiptSource
	archiveDir string
}

// NewMirrorWorker wires the worker. A nil ledger disables the spreadsheet
// mirror and an empty archiveDir disables receipt archiving.
func NewMirrorWorker(ledger sheets.LedgerWriter, source ReceiptSource, archiveDir string) *MirrorWorker {
	return &MirrorWorker{
		ledger:     ledger,
		receipts:   source,
		archiveDir: archiveDir,
	}
}

// HandleEvent mirrors one event. Pending receipts are not bookkeeping
// entries yet and are skipped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.MovementEvent) error {
	if ev.Type == amqp.EventReceiptCreated || ev.Movement.IsPending() {
		slog.DebugContext(ctx, "Skipping pending movement",
			"type", ev.Type,
			"group", ev.Group,
			"user", ev.Movement.User)
		return nil
	}

	slog.InfoContext(ctx, "Processing movement event",
		"type", ev.Type,
		"group", ev.Group,
		"transaction_id", ev.Movement.TransactionID)

	eg, egCtx := errgroup.WithContext(ctx)
	if w.ledger != nil {
		eg.Go(func() error {
			ref, err := w.ledger.AppendMovement(egCtx, string(ev.Type), ev.Movement)
			if err != nil {
				return fmt.Errorf("append to ledger: %w", err)
			}
			slog.InfoContext(egCtx, "Movement mirrored", "row_ref", ref)
			return nil
		})
	}
	if ev.Type == amqp.EventReceiptPaid && w.archiveDir != "" && w.receipts != nil {
		eg.Go(func() error {
			return w.archiveReceipt(egCtx, ev.Group, ev.Movement.TransactionID)
		})
	}
	return eg.Wait()
}

func (w *MirrorWorker) archiveReceipt(ctx context.Context, group string, transactionID int) error {
	r, err := w.receipts.ReceiptFor(ctx, group, transactionID)
	if err != nil {
		return fmt.Errorf("load receipt %d: %w", transactionID, err)
	}

	dir := filepath.Join(w.archiveDir, safeName(group))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	// Write then rename so readers never see a half-written file.
	tmp, err := os.CreateTemp(dir, ".receipt-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := receipts.WriteReceiptsPDF(tmp, []receipts.Receipt{r}); err != nil {
		tmp.Close()
		return fmt.Errorf("render receipt %d: %w", transactionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	path := ArchivePath(w.archiveDir, group, transactionID)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("archive receipt: %w", err)
	}
	slog.InfoContext(ctx, "Receipt archived", "path", path)
	return nil
}

// ArchivePath is where the PDF for a transaction id is stored.
func ArchivePath(archiveDir, group string, transactionID int) string {
	return filepath.Join(archiveDir, safeName(group), fmt.Sprintf("receipt-%d.pdf", transactionID))
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "_"
	}
	return s
}
