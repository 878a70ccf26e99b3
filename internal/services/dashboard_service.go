package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/analysis"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Dashboard is the cached monthly view of one user.
type Dashboard struct {
	Summary  core.Summary `json:"summary"`
	Currency string       `json:"currency"`
	Advice   []string     `json:"advice"`
}

// DashboardService serves dashboards from cache, computing misses once per
// key even under concurrent requests.
//
// Each user has a generation that Invalidate bumps. A computation only
// lands in the cache if the generation it started under is still current
// after the write, so a build that read the store before an insert never
// outlives the invalidation that followed it.
type DashboardService struct {
	aggregator *analysis.Aggregator
	advisor    *analysis.Advisor
	cache      cache.Cache[Dashboard]
	group      singleflight.Group

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewDashboardService(aggregator *analysis.Aggregator, advisor *analysis.Advisor, c cache.Cache[Dashboard]) *DashboardService {
	return &DashboardService{
		aggregator:  aggregator,
		advisor:     advisor,
		cache:       c,
		generations: make(map[int64]uint64),
	}
}

func (s *DashboardService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// CacheStats reports the dashboard cache counters when the backing cache
// keeps them.
func (s *DashboardService) CacheStats() (cache.Stats, bool) {
	r, ok := s.cache.(cache.StatsReporter)
	if !ok {
		return cache.Stats{}, false
	}
	return r.Stats(), true
}

func dashboardKey(userID int64, period core.Period) string {
	return dashboardPrefix(userID) + period.Key()
}

func dashboardPrefix(userID int64) string {
	return "dashboard:" + strconv.FormatInt(userID, 10) + ":"
}

// Dashboard never fails. A store failure yields the zero summary with
// the advice fallback, and such degraded results are not cached.
func (s *DashboardService) Dashboard(ctx context.Context, userID int64, period core.Period) Dashboard {
	key := dashboardKey(userID, period)
	if s.cache != nil {
		if d, ok := s.cache.Get(ctx, key); ok {
			slog.DebugContext(ctx, "Dashboard cache hit", applog.FieldUserID, userID, applog.FieldPeriod, period.Key(), applog.FieldCacheHit, true)
			return d
		}
	}

	// Requests arriving after an invalidation never join a flight that
	// started before it.
	gen := s.generation(userID)
	flight := key + "#" + strconv.FormatUint(gen, 10)

	v, _, _ := s.group.Do(flight, func() (any, error) {
		bctx := context.WithoutCancel(ctx)
		d, ok := s.build(bctx, userID, period)
		if ok && s.cache != nil && s.generation(userID) == gen {
			s.cache.Set(bctx, key, d)
			if s.generation(userID) != gen {
				s.cache.Delete(bctx, key)
			}
		}
		return d, nil
	})
	return v.(Dashboard)
}

func (s *DashboardService) build(ctx context.Context, userID int64, period core.Period) (Dashboard, bool) {
	var (
		summary core.Summary
		fresh   bool
		advice  []string
	)

	var g errgroup.Group
	g.Go(func() error {
		summary, fresh = s.aggregator.Summarize(ctx, userID, period)
		return nil
	})
	g.Go(func() error {
		advice = s.advisor.Advise(ctx, userID, period)
		return nil
	})
	_ = g.Wait()

	d := Dashboard{
		Summary:  summary,
		Currency: s.aggregator.Currency(ctx, userID),
		Advice:   advice,
	}
	if len(advice) == 1 && advice[0] == analysis.MsgAnalysisFailed {
		fresh = false
	}
	return d, fresh
}

// Invalidate drops every cached period of userID. Outstanding is a
// lifetime figure, so a new transaction affects all months.
func (s *DashboardService) Invalidate(ctx context.Context, userID int64) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ctx, dashboardPrefix(userID))
	slog.DebugContext(ctx, "Dashboard cache invalidated", applog.FieldUserID, userID)
}

var _ Invalidator = (*DashboardService)(nil)

