package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bugtracker/internal/domain"
	"bugtracker/internal/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlapping() []domain.Interval {
	t0 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := t0.Add(10 * time.Hour)
	c2 := t0.Add(15 * time.Hour)
	return []domain.Interval{
		{Opened: t0, Closed: &c1},
		{Opened: t0.Add(5 * time.Hour), Closed: &c2},
	}
}

func TestStatsCache_MaxOpen_ComputesOnceUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	tx := newMockTx()
	data := overlapping()
	tx.issues.intervalsFn = func(context.Context) ([]domain.Interval, error) { return data, nil }

	m := metrics.New(nil)
	cache := NewStatsCache(m)

	got, err := cache.MaxOpen(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	got, err = cache.MaxOpen(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, tx.issues.intervalCalls, "second read must come from the cache")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsCacheMisses))

	// New data is only seen after invalidation.
	data = append(data, domain.Interval{Opened: data[1].Opened.Add(time.Hour)})
	got, _ = cache.MaxOpen(ctx, tx)
	assert.Equal(t, 2, got)

	require.NoError(t, cache.Invalidate(ctx, tx))
	got, err = cache.MaxOpen(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, 2, tx.issues.intervalCalls)
}

func TestStatsCache_MaxOpen_LostInsertRace(t *testing.T) {
	ctx := context.Background()
	tx := newMockTx()
	tx.issues.intervalsFn = func(context.Context) ([]domain.Interval, error) { return overlapping(), nil }
	tx.stats.insertFn = func(context.Context, string, int64) (bool, error) { return false, nil }

	got, err := NewStatsCache(metrics.New(nil)).MaxOpen(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestStatsCache_MaxOpen_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("read", func(t *testing.T) {
		tx := newMockTx()
		tx.stats.getErr = errStoreDown
		_, err := NewStatsCache(metrics.New(nil)).MaxOpen(ctx, tx)
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("intervals", func(t *testing.T) {
		tx := newMockTx()
		tx.issues.intervalsFn = func(context.Context) ([]domain.Interval, error) { return nil, errStoreDown }
		_, err := NewStatsCache(metrics.New(nil)).MaxOpen(ctx, tx)
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("insert", func(t *testing.T) {
		tx := newMockTx()
		tx.stats.insertFn = func(context.Context, string, int64) (bool, error) { return false, errStoreDown }
		_, err := NewStatsCache(metrics.New(nil)).MaxOpen(ctx, tx)
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("concurrent invalidation", func(t *testing.T) {
		tx := newMockTx()
		tx.stats.insertFn = func(context.Context, string, int64) (bool, error) {
			return false, fmt.Errorf("%w: could not serialize access", domain.ErrConflict)
		}
		_, err := NewStatsCache(metrics.New(nil)).MaxOpen(ctx, tx)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestStatsCache_Invalidate_Idempotent(t *testing.T) {
	ctx := context.Background()
	tx := newMockTx()
	cache := NewStatsCache(metrics.New(nil))

	require.NoError(t, cache.Invalidate(ctx, tx))
	require.NoError(t, cache.Invalidate(ctx, tx))
	assert.Equal(t, 2, tx.stats.deletes)
}

func TestStatisticsService_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2019, 2, 7, 12, 0, 0, 0, time.UTC)
	tx := newMockTx()
	tx.issues.intervalsFn = func(context.Context) ([]domain.Interval, error) { return overlapping(), nil }
	tx.issues.countOpenFn = func(_ context.Context, at time.Time) (int, error) {
		assert.True(t, at.Equal(now))
		return 3, nil
	}
	tx.issues.countClosedFn = func(_ context.Context, from, to time.Time) (int, error) {
		assert.True(t, from.Equal(now.Add(-7*24*time.Hour)))
		assert.True(t, to.Equal(now))
		return 1, nil
	}
	txr := &mockTransactor{tx: tx}

	svc := NewStatisticsService(txr, NewStatsCache(metrics.New(nil)), clockwork.NewFakeClockAt(now))
	st, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{MaxOpen: 2, CurrentOpen: 3, ClosedInLastWeek: 1}, st)
	assert.Equal(t, 1, txr.calls, "one read is one unit of work")
}

func TestStatisticsService_Get_Error(t *testing.T) {
	tx := newMockTx()
	tx.issues.countOpenFn = func(context.Context, time.Time) (int, error) { return 0, errStoreDown }

	svc := NewStatisticsService(&mockTransactor{tx: tx}, NewStatsCache(metrics.New(nil)), clockwork.NewRealClock())
	_, err := svc.Get(context.Background())
	assert.True(t, errors.Is(err, errStoreDown))
}
