package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetracker/internal/aggregation"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/store/query"
)

const (
	defaultSummaryCacheSize = 256
	defaultSummaryCacheTTL  = 5 * time.Minute
)

// ParsedResult is the monthly breakdown of a group with its totals.
type ParsedResult struct {
	ParsedData   aggregation.ParsedData `json:"parsed_data"`
	GroupDetails core.GroupSummary      `json:"group_details"`
}

// SummaryService aggregates group movements into monthly buckets and
// totals. Results are cached per group and user until the group changes.
//
// Each group carries a generation bumped on every write. A computation
// only caches its result if the generation it started under is still
// current, and callers never join a computation of an older generation.
type SummaryService struct {
	*base
	cache  *cache.LRUCache[ParsedResult]
	flight singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewSummaryService(b *base, size int, ttl time.Duration) *SummaryService {
	if size <= 0 {
		size = defaultSummaryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultSummaryCacheTTL
	}
	return &SummaryService{
		base:        b,
		cache:       cache.NewLRUCache[ParsedResult](size, ttl),
		generations: make(map[string]uint64),
	}
}

// Cache exposes the result cache so it can be registered for cleanup.
func (s *SummaryService) Cache() cache.Cleaner { return s.cache }

func cacheKey(group, user string) string { return group + "|" + user }

func (s *SummaryService) generation(group string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[group]
}

// InvalidateGroup drops every cached result of group and retires the
// computations still running for it.
func (s *SummaryService) InvalidateGroup(group string) {
	s.mu.Lock()
	s.generations[group]++
	s.mu.Unlock()

	if n := s.cache.DeletePrefix(group + "|"); n > 0 {
		s.log.Debug("Summary cache invalidated", "group", group, "entries", n)
	}
}

// ParsedData returns the monthly breakdown for group, optionally narrowed
// to one user.
func (s *SummaryService) ParsedData(ctx context.Context, caller core.Owner, group, user string) (ParsedResult, error) {
	if err := authorize(caller, group, false); err != nil {
		return ParsedResult{}, err
	}
	key := cacheKey(group, user)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	gen := s.generation(group)
	v, err, shared := s.flight.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		res, err := s.compute(ctx, group, user)
		if err != nil {
			return ParsedResult{}, err
		}
		s.mu.Lock()
		if s.generations[group] == gen {
			s.cache.Set(key, res)
		}
		s.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return ParsedResult{}, err
	}
	if shared {
		s.log.DebugContext(ctx, "Summary computation shared", "group", group)
	}
	return v.(ParsedResult), nil
}

func (s *SummaryService) compute(ctx context.Context, group, user string) (ParsedResult, error) {
	g, err := s.store.FindGroup(ctx, group)
	if err != nil {
		return ParsedResult{}, fmt.Errorf("load group: %w", err)
	}

	f := query.New().Eq(query.FieldGroup, group).Eq(query.FieldRemoved, false)
	if user != "" {
		f.Eq(query.FieldUser, user)
	}
	ms, err := s.store.Find(ctx, f, query.Options{})
	if err != nil {
		return ParsedResult{}, fmt.Errorf("load movements: %w", err)
	}
	if len(ms) == 0 {
		return ParsedResult{}, fmt.Errorf("%w: Data not found", core.ErrNotFound)
	}

	parsed := aggregation.Aggregate(ms, g.CreatedAt, s.now())
	return ParsedResult{
		ParsedData:   parsed,
		GroupDetails: aggregation.Summarize(g, parsed),
	}, nil
}

// GroupSummary returns only the totals of a group.
func (s *SummaryService) GroupSummary(ctx context.Context, caller core.Owner, group string) (core.GroupSummary, error) {
	res, err := s.ParsedData(ctx, caller, group, "")
	if err != nil {
		return core.GroupSummary{}, err
	}
	return res.GroupDetails, nil
}
