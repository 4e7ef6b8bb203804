package app

import (
	"context"
	"fmt"
	"time"

	"bugtracker/internal/domain"
	"bugtracker/internal/metrics"
)

// StatsCache keeps the historical maximum of simultaneously open issues in
// the statistics store. The value has no time-based expiry: every write that
// can move it must call Invalidate in the same unit of work.
type StatsCache struct {
	metrics *metrics.Metrics
}

// NewStatsCache creates a StatsCache reporting to m.
func NewStatsCache(m *metrics.Metrics) *StatsCache {
	return &StatsCache{metrics: m}
}

// MaxOpen returns the cached maximum, computing and storing it on a miss.
func (c *StatsCache) MaxOpen(ctx context.Context, tx domain.Tx) (int, error) {
	store := tx.StatCache()

	v, ok, err := store.Get(ctx, domain.StatMaxOpen)
	if err != nil {
		return 0, fmt.Errorf("read cached %s: %w", domain.StatMaxOpen, err)
	}
	if ok {
		c.metrics.StatsCacheHits.Inc()
		return int(v), nil
	}
	c.metrics.StatsCacheMisses.Inc()

	start := time.Now()
	intervals, err := tx.Issues().Intervals(ctx)
	if err != nil {
		return 0, fmt.Errorf("load intervals: %w", err)
	}
	maxOpen := domain.MaxConcurrentOpen(intervals)
	c.metrics.StatsRecomputeTime.Observe(time.Since(start).Seconds())

	// Losing the insert race is fine: the winner stored the same value.
	if _, err := store.InsertIfAbsent(ctx, domain.StatMaxOpen, int64(maxOpen)); err != nil {
		return 0, fmt.Errorf("store %s: %w", domain.StatMaxOpen, err)
	}
	return maxOpen, nil
}

// Invalidate discards the cached maximum.
func (c *StatsCache) Invalidate(ctx context.Context, tx domain.Tx) error {
	if err := tx.StatCache().Delete(ctx, domain.StatMaxOpen); err != nil {
		return fmt.Errorf("invalidate %s: %w", domain.StatMaxOpen, err)
	}
	c.metrics.StatsInvalidations.Inc()
	return nil
}
