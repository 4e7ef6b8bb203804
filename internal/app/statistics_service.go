package app

import (
	"context"
	"time"

	"bugtracker/internal/domain"

	"github.com/jonboulle/clockwork"
)

// closedWindow is the look-back period of Statistics.ClosedInLastWeek.
const closedWindow = 7 * 24 * time.Hour

// StatisticsService encapsulates issue statistics use cases.
type StatisticsService struct {
	tx    domain.Transactor
	cache *StatsCache
	clock clockwork.Clock
}

// NewStatisticsService creates a StatisticsService.
func NewStatisticsService(tx domain.Transactor, cache *StatsCache, clock clockwork.Clock) *StatisticsService {
	return &StatisticsService{tx: tx, cache: cache, clock: clock}
}

// Get returns the issue statistics. Only MaxOpen is cached; the other counts
// are cheap and read fresh every time.
func (s *StatisticsService) Get(ctx context.Context) (domain.Statistics, error) {
	var st domain.Statistics
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		maxOpen, err := s.cache.MaxOpen(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		currentOpen, err := tx.Issues().CountOpen(ctx, now)
		if err != nil {
			return err
		}
		closed, err := tx.Issues().CountClosedBetween(ctx, now.Add(-closedWindow), now)
		if err != nil {
			return err
		}

		st = domain.Statistics{MaxOpen: maxOpen, CurrentOpen: currentOpen, ClosedInLastWeek: closed}
		return nil
	})
	return st, err
}

// MaxOpen returns the historical maximum of simultaneously open issues.
func (s *StatisticsService) MaxOpen(ctx context.Context) (int, error) {
	var n int
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		n, err = s.cache.MaxOpen(ctx, tx)
		return err
	})
	return n, err
}

// Invalidate discards the cached maximum so the next read recomputes it.
func (s *StatisticsService) Invalidate(ctx context.Context) error {
	return s.tx.InTx(ctx, func(tx domain.Tx) error {
		return s.cache.Invalidate(ctx, tx)
	})
}
