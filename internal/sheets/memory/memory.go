// Package memory is an in-process LedgerWriter used by tests and by the
// worker when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

var _ sheets.LedgerWriter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	now  func() time.Time
	rows [][]any
}

func New() *Store {
	return &Store{now: time.Now}
}

// AppendMovement stores the row and returns a synthetic row reference.
func (s *Store) AppendMovement(_ context.Context, action string, m core.Movement) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, sheets.Row(s.now(), action, m))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
