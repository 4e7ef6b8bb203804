package domain

import (
	"context"
	"errors"
)

var (
	// ErrDuplicate is returned by repositories when a unique key already exists.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned by InTx when the unit of work collided with a
	// concurrent one and was rolled back. The operation may be retried.
	ErrConflict = errors.New("concurrent update conflict")
)

// Tx gives access to repositories bound to a single unit of work.
type Tx interface {
	Issues() IssueRepository
	Users() UserRepository
	Sessions() SessionRepository
	StatCache() StatCacheStore
}

// Transactor runs units of work. InTx commits when fn returns nil and rolls
// back otherwise, including when fn panics.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
