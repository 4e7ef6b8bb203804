package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// StatRepo implements domain.StatCacheStore over the statistics table.
type StatRepo struct {
	q querier
}

// Get returns a cached statistic.
func (r *StatRepo) Get(ctx context.Context, name string) (int64, bool, error) {
	var v int64
	err := r.q.QueryRowContext(ctx, "SELECT value FROM statistics WHERE name = $1", name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// InsertIfAbsent stores a statistic unless another writer already did. A
// conflicting insert must not abort the surrounding transaction, so the
// conflict is resolved in SQL rather than by catching the error.
func (r *StatRepo) InsertIfAbsent(ctx context.Context, name string, value int64) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO statistics (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
		name, value,
	)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete drops a cached statistic.
func (r *StatRepo) Delete(ctx context.Context, name string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM statistics WHERE name = $1", name)
	return err
}
