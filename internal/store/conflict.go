package store

import (
	"fmt"

	"expensetracker/internal/core"
)

// CheckIDOwnership reports core.ErrTransactionIDTaken when candidate is a
// finalized movement whose transaction id is already held by another user
// of the same group in existing.
func CheckIDOwnership(candidate core.Movement, existing []core.Movement) error {
	if candidate.IsPending() || candidate.Removed {
		return nil
	}
	for _, m := range existing {
		if m.Group != candidate.Group || m.TransactionID != candidate.TransactionID {
			continue
		}
		if m.IsPending() || m.Removed {
			continue
		}
		if m.User != candidate.User {
			return fmt.Errorf("%w: %d in group %s belongs to %s", core.ErrTransactionIDTaken, candidate.TransactionID, candidate.Group, m.User)
		}
	}
	return nil
}
