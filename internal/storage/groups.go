package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

func (s *SQLiteStore) FindGroup(ctx context.Context, id string) (core.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, members, management, size FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("%w: group %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("find group %s: %w", id, err)
	}
	return g, nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, members, management, size FROM groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	var out []core.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGroup(sc rowScanner) (core.Group, error) {
	var (
		g                   core.Group
		createdAt           string
		members, management string
	)
	if err := sc.Scan(&g.ID, &createdAt, &members, &management, &g.Size); err != nil {
		return g, err
	}
	var err error
	if g.CreatedAt, err = time.Parse(query.TimeLayout, createdAt); err != nil {
		return g, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return g, fmt.Errorf("decode members: %w", err)
	}
	if err := json.Unmarshal([]byte(management), &g.Management); err != nil {
		return g, fmt.Errorf("decode management: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) SaveGroup(ctx context.Context, g core.Group) error {
	members, err := json.Marshal(nonNil(g.Members))
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	management, err := json.Marshal(nonNil(g.Management))
	if err != nil {
		return fmt.Errorf("encode management: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO groups (id, created_at, members, management, size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET created_at = excluded.created_at, members = excluded.members,
			management = excluded.management, size = excluded.size`,
		g.ID, g.CreatedAt.UTC().Format(query.TimeLayout), string(members), string(management), g.Size)
	if err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLiteStore) FindOwnerByToken(ctx context.Context, token string) (core.Owner, error) {
	var (
		o     core.Owner
		scope string
		tt    string
	)
	err := s.db.QueryRowContext(ctx, `SELECT access_token, owner_id, scope, token_type FROM owners WHERE access_token = ?`, token).
		Scan(&o.AccessToken, &o.OwnerID, &scope, &tt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("%w: owner", core.ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("find owner: %w", err)
	}
	o.TokenType = core.TokenType(tt)
	if err := json.Unmarshal([]byte(scope), &o.Scope); err != nil {
		return core.Owner{}, fmt.Errorf("decode scope: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) SaveOwner(ctx context.Context, o core.Owner) error {
	scope, err := json.Marshal(nonNil(o.Scope))
	if err != nil {
		return fmt.Errorf("encode scope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO owners (access_token, owner_id, scope, token_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(access_token) DO UPDATE SET owner_id = excluded.owner_id, scope = excluded.scope,
			token_type = excluded.token_type`,
		o.AccessToken, o.OwnerID, string(scope), string(o.TokenType))
	if err != nil {
		return fmt.Errorf("save owner %s: %w", o.OwnerID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
