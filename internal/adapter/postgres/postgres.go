// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bugtracker/internal/domain"

	"github.com/lib/pq"
)

// DB wraps a *sql.DB and runs units of work as SQL transactions.
type DB struct {
	sql *sql.DB
}

var _ domain.Transactor = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, email TEXT NOT NULL, password_hash TEXT NOT NULL, session_token TEXT, session_expires_at TIMESTAMPTZ, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));",
		"CREATE TABLE IF NOT EXISTS issues (id BIGSERIAL PRIMARY KEY, title TEXT NOT NULL, description TEXT NOT NULL, opened_at TIMESTAMPTZ NOT NULL, closed_at TIMESTAMPTZ, creator_id BIGINT NOT NULL REFERENCES users(id), assignee_id BIGINT REFERENCES users(id), CHECK (closed_at IS NULL OR closed_at >= opened_at));",
		"CREATE INDEX IF NOT EXISTS idx_issues_opened_closed ON issues(opened_at, closed_at);",
		"CREATE INDEX IF NOT EXISTS idx_issues_closed_at ON issues(closed_at);",
		"CREATE TABLE IF NOT EXISTS statistics (name TEXT PRIMARY KEY, value BIGINT NOT NULL);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a serializable transaction. The transaction is rolled
// back when fn returns an error or panics. A serialization failure or
// deadlock is reported as domain.ErrConflict.
func (d *DB) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := d.sql.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return classify(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// classify tags errors caused by concurrent transactions with
// domain.ErrConflict, keeping the driver error in the chain.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "serialization_failure", "deadlock_detected":
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	}
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tx struct {
	q querier
}

func (t tx) Issues() domain.IssueRepository     { return &IssueRepo{q: t.q} }
func (t tx) Users() domain.UserRepository       { return &UserRepo{q: t.q} }
func (t tx) Sessions() domain.SessionRepository { return &SessionRepo{q: t.q} }
func (t tx) StatCache() domain.StatCacheStore   { return &StatRepo{q: t.q} }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
