// Package sheets mirrors ledger movements into a spreadsheet for bookkeeping.
package sheets

import (
	"context"
	"time"

	"expensetracker/internal/core"
)

// Header is the column layout every LedgerWriter appends.
var Header = []string{
	"Recorded", "Action", "Group", "Transaction", "User", "Type",
	"Category", "Amount", "Date", "Name", "Comments",
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends one row per mirrored movement.
	LedgerWriter interface {
		AppendMovement(ctx context.Context, action string, m core.Movement) (rowRef string, err error)
	}
)

// Row renders a movement in Header order.
func Row(recorded time.Time, action string, m core.Movement) []any {
	date := ""
	if m.Date != nil {
		date = m.Date.Format("2006-01-02")
	}
	return []any{
		recorded.UTC().Format(time.RFC3339),
		action,
		m.Group,
		m.TransactionID,
		m.User,
		string(m.MovementType),
		m.Category,
		m.Amount.StringFixed(2),
		date,
		m.Name,
		m.Comments,
	}
}
