package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/query"
)

const movementColumns = `id, transaction_id, "user", "group", movement_type, amount, category,
	created_at, "date", name, comments, status, receipt_category, removed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(sc rowScanner) (int64, core.Movement, error) {
	var (
		id        int64
		m         core.Movement
		mt        string
		amount    string
		createdAt string
		date      sql.NullString
		status    string
		removed   int
	)
	err := sc.Scan(&id, &m.TransactionID, &m.User, &m.Group, &mt, &amount, &m.Category,
		&createdAt, &date, &m.Name, &m.Comments, &status, &m.ReceiptCategory, &removed)
	if err != nil {
		return 0, m, err
	}
	m.MovementType = core.MovementType(mt)
	m.Status = core.MovementStatus(status)
	m.Removed = removed != 0
	if m.Amount, err = decimal.NewFromString(amount); err != nil {
		return 0, m, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if m.CreatedAt, err = time.Parse(query.TimeLayout, createdAt); err != nil {
		return 0, m, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if date.Valid {
		d, err := time.Parse(query.TimeLayout, date.String)
		if err != nil {
			return 0, m, fmt.Errorf("parse date %q: %w", date.String, err)
		}
		m.Date = &d
	}
	return id, m, nil
}

func movementArgs(m core.Movement) []any {
	var date any
	if m.Date != nil {
		date = m.Date.UTC().Format(query.TimeLayout)
	}
	return []any{
		int64(m.TransactionID), m.User, m.Group, string(m.MovementType), m.Amount.String(), m.Category,
		m.CreatedAt.UTC().Format(query.TimeLayout), date, m.Name, m.Comments, string(m.Status),
		m.ReceiptCategory, sqlArg(m.Removed),
	}
}

type querier interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
}

func findRows(ctx context.Context, q querier, f query.Filter, opts query.Options) ([]int64, []core.Movement, error) {
	where, args := buildWhere(f)
	stmt := "SELECT " + movementColumns + " FROM movements" + where + buildOrder(opts.Sort)
	switch {
	case opts.Limit > 0:
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Skip)
	case opts.Skip > 0:
		stmt += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Skip)
	}

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var (
		ids []int64
		out []core.Movement
	)
	for rows.Next() {
		id, m, err := scanMovement(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan movement: %w", err)
		}
		ids = append(ids, id)
		out = append(out, m)
	}
	return ids, out, rows.Err()
}

func (s *SQLiteStore) Find(ctx context.Context, f query.Filter, opts query.Options) ([]core.Movement, error) {
	nf, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	if err := query.ValidateSort(opts.Sort); err != nil {
		return nil, err
	}
	_, out, err := findRows(ctx, s.db, nf, opts)
	return out, err
}

func (s *SQLiteStore) FindOne(ctx context.Context, f query.Filter, sort ...query.Sort) (core.Movement, bool, error) {
	ms, err := s.Find(ctx, f, query.Options{Sort: sort, Limit: 1})
	if err != nil || len(ms) == 0 {
		return core.Movement{}, false, err
	}
	return ms[0], true, nil
}

func (s *SQLiteStore) Count(ctx context.Context, f query.Filter) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(nf)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movements"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

// sameIDMovements loads the movements sharing m's group and transaction id.
func sameIDMovements(ctx context.Context, tx *sql.Tx, m core.Movement, excludeID int64) ([]core.Movement, error) {
	f := query.New().Eq(query.FieldGroup, m.Group).Eq(query.FieldTransactionID, m.TransactionID)
	ids, ms, err := findRows(ctx, tx, f, query.Options{})
	if err != nil {
		return nil, err
	}
	out := ms[:0]
	for i, id := range ids {
		if id != excludeID {
			out = append(out, ms[i])
		}
	}
	return out, nil
}

func (s *SQLiteStore) InsertOne(ctx context.Context, m core.Movement) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := sameIDMovements(ctx, tx, m, -1)
		if err != nil {
			return err
		}
		if err := store.CheckIDOwnership(m, existing); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO movements (transaction_id, "user", "group", movement_type,
			amount, category, created_at, "date", name, comments, status, receipt_category, removed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, movementArgs(m)...)
		if err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Movement saved to SQLite",
		"group", m.Group,
		"user", m.User,
		"transaction_id", m.TransactionID,
		"category", m.Category)
	return nil
}

func (s *SQLiteStore) UpdateOne(ctx context.Context, f query.Filter, u query.Update) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	nu, err := u.Normalize()
	if err != nil {
		return 0, err
	}

	var modified int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ids, ms, err := findRows(ctx, tx, nf, query.Options{Limit: 1})
		if err != nil || len(ms) == 0 {
			return err
		}
		updated := ms[0]
		for field, v := range nu {
			query.Set(&updated, field, v)
		}
		existing, err := sameIDMovements(ctx, tx, updated, ids[0])
		if err != nil {
			return err
		}
		if err := store.CheckIDOwnership(updated, existing); err != nil {
			return err
		}
		args := append(movementArgs(updated), ids[0])
		res, err := tx.ExecContext(ctx, `UPDATE movements SET transaction_id = ?, "user" = ?, "group" = ?,
			movement_type = ?, amount = ?, category = ?, created_at = ?, "date" = ?, name = ?, comments = ?,
			status = ?, receipt_category = ?, removed = ? WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		modified, err = res.RowsAffected()
		return err
	})
	return modified, err
}

func (s *SQLiteStore) DeleteOne(ctx context.Context, f query.Filter) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(nf)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM movements WHERE id = (SELECT id FROM movements"+where+" ORDER BY id LIMIT 1)", args...)
	if err != nil {
		return 0, fmt.Errorf("delete movement: %w", err)
	}
	return res.RowsAffected()
}
