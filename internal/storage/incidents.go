package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

const incidentColumns = `incident_id, "group", incident_type, message, submitted_by, solved_by, status, created_at, removed`

func scanIncident(sc rowScanner) (core.Incident, error) {
	var (
		in        core.Incident
		typ, st   string
		createdAt string
		removed   int
	)
	if err := sc.Scan(&in.ID, &in.Group, &typ, &in.Message, &in.SubmittedBy, &in.SolvedBy, &st, &createdAt, &removed); err != nil {
		return in, err
	}
	in.Type = core.IncidentType(typ)
	in.Status = core.IncidentStatus(st)
	in.Removed = removed != 0
	var err error
	if in.CreatedAt, err = time.Parse(query.TimeLayout, createdAt); err != nil {
		return in, fmt.Errorf("parse created_at: %w", err)
	}
	return in, nil
}

func (s *SQLiteStore) FindIncidents(ctx context.Context, group, submittedBy string) ([]core.Incident, error) {
	stmt := `SELECT ` + incidentColumns + ` FROM incidents WHERE "group" = ? AND removed = 0`
	args := []any{group}
	if submittedBy != "" {
		stmt += ` AND submitted_by = ?`
		args = append(args, submittedBy)
	}
	rows, err := s.db.QueryContext(ctx, stmt+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()
	var out []core.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindIncident(ctx context.Context, group, id string) (core.Incident, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents
		WHERE "group" = ? AND incident_id = ? AND removed = 0`, group, id)
	in, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Incident{}, fmt.Errorf("%w: incident %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Incident{}, fmt.Errorf("find incident %s: %w", id, err)
	}
	return in, nil
}

func (s *SQLiteStore) InsertIncident(ctx context.Context, in core.Incident) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO incidents (`+incidentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Group, string(in.Type), in.Message, in.SubmittedBy, in.SolvedBy, string(in.Status),
		in.CreatedAt.UTC().Format(query.TimeLayout), sqlArg(in.Removed))
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateIncident(ctx context.Context, in core.Incident) error {
	res, err := s.db.ExecContext(ctx, `UPDATE incidents SET incident_type = ?, message = ?, submitted_by = ?,
		solved_by = ?, status = ?, removed = ? WHERE "group" = ? AND incident_id = ?`,
		string(in.Type), in.Message, in.SubmittedBy, in.SolvedBy, string(in.Status), sqlArg(in.Removed), in.Group, in.ID)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: incident %s", core.ErrNotFound, in.ID)
	}
	return nil
}
