// Package memory is an in-process store used by tests and local demos.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/query"
)

type Store struct {
	mu        sync.RWMutex
	movements []core.Movement
	groups    map[string]core.Group
	owners    map[string]core.Owner
	incidents []core.Incident
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		groups: make(map[string]core.Group),
		owners: make(map[string]core.Owner),
	}
}

// Seed is the JSON layout accepted by NewFromFile.
type Seed struct {
	Groups    []core.Group    `json:"groups"`
	Owners    []seedOwner     `json:"owners"`
	Movements []core.Movement `json:"movements"`
}

type seedOwner struct {
	core.Owner
	AccessToken string `json:"access_token"`
}

// ReadSeed decodes a JSON seed file. A missing file yields an empty seed.
func ReadSeed(path string) (Seed, error) {
	var seed Seed
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return seed, nil
	}
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("decode seed file: %w", err)
	}
	return seed, nil
}

// OwnerList returns the seeded owners with their access tokens attached.
func (sd Seed) OwnerList() []core.Owner {
	out := make([]core.Owner, 0, len(sd.Owners))
	for _, o := range sd.Owners {
		owner := o.Owner
		owner.AccessToken = o.AccessToken
		out = append(out, owner)
	}
	return out
}

// NewFromFile loads groups, owners and movements from a JSON seed file.
func NewFromFile(path string) (*Store, error) {
	seed, err := ReadSeed(path)
	if err != nil {
		return nil, err
	}
	s := New()
	for _, g := range seed.Groups {
		s.groups[g.ID] = g
	}
	for _, o := range seed.OwnerList() {
		s.owners[o.AccessToken] = o
	}
	s.movements = append(s.movements, seed.Movements...)
	return s, nil
}

func (s *Store) Find(_ context.Context, f query.Filter, opts query.Options) ([]core.Movement, error) {
	nf, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	if err := query.ValidateSort(opts.Sort); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []core.Movement
	for _, m := range s.movements {
		if nf.Match(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	query.SortMovements(out, opts.Sort)
	return query.Page(out, opts.Skip, opts.Limit), nil
}

func (s *Store) FindOne(ctx context.Context, f query.Filter, sort ...query.Sort) (core.Movement, bool, error) {
	ms, err := s.Find(ctx, f, query.Options{Sort: sort, Limit: 1})
	if err != nil || len(ms) == 0 {
		return core.Movement{}, false, err
	}
	return ms[0], true, nil
}

func (s *Store) Count(_ context.Context, f query.Filter) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.movements {
		if nf.Match(m) {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertOne(_ context.Context, m core.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := store.CheckIDOwnership(m, s.movements); err != nil {
		return err
	}
	s.movements = append(s.movements, m)
	return nil
}

func (s *Store) UpdateOne(_ context.Context, f query.Filter, u query.Update) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	nu, err := u.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.movements {
		if !nf.Match(m) {
			continue
		}
		updated := m
		for field, v := range nu {
			query.Set(&updated, field, v)
		}
		others := make([]core.Movement, 0, len(s.movements)-1)
		others = append(others, s.movements[:i]...)
		others = append(others, s.movements[i+1:]...)
		if err := store.CheckIDOwnership(updated, others); err != nil {
			return 0, err
		}
		s.movements[i] = updated
		return 1, nil
	}
	return 0, nil
}

func (s *Store) DeleteOne(_ context.Context, f query.Filter) (int64, error) {
	nf, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.movements {
		if nf.Match(m) {
			s.movements = append(s.movements[:i], s.movements[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) FindGroup(_ context.Context, id string) (core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, fmt.Errorf("%w: group %s", core.ErrNotFound, id)
	}
	return g, nil
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveGroup(_ context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

func (s *Store) FindOwnerByToken(_ context.Context, token string) (core.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[token]
	if !ok || token == "" {
		return core.Owner{}, fmt.Errorf("%w: owner", core.ErrNotFound)
	}
	return o, nil
}

func (s *Store) SaveOwner(_ context.Context, o core.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[o.AccessToken] = o
	return nil
}

func (s *Store) FindIncidents(_ context.Context, group, submittedBy string) ([]core.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Incident
	for _, in := range s.incidents {
		if in.Group != group || in.Removed {
			continue
		}
		if submittedBy != "" && in.SubmittedBy != submittedBy {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (s *Store) FindIncident(_ context.Context, group, id string) (core.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, in := range s.incidents {
		if in.Group == group && in.ID == id && !in.Removed {
			return in, nil
		}
	}
	return core.Incident{}, fmt.Errorf("%w: incident %s", core.ErrNotFound, id)
}

func (s *Store) InsertIncident(_ context.Context, in core.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, in)
	return nil
}

func (s *Store) UpdateIncident(_ context.Context, in core.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.incidents {
		if cur.Group == in.Group && cur.ID == in.ID {
			s.incidents[i] = in
			return nil
		}
	}
	return fmt.Errorf("%w: incident %s", core.ErrNotFound, in.ID)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
