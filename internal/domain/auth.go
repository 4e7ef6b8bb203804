// Package domain contains the core business entities, interfaces and the
// statistics algorithms.
package domain

import (
	"context"
	"time"
)

// User represents a registered user.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is the single login slot of a user. An empty Token means the user
// has no session.
type Session struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// Live reports whether the session holds a token that has not expired at now.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	// List returns all users ordered by email.
	List(ctx context.Context) ([]User, error)
}

// SessionRepository stores at most one session per user.
type SessionRepository interface {
	// Get returns nil when the user has no stored session or does not exist.
	Get(ctx context.Context, userID int64) (*Session, error)
	// Save overwrites the user's session.
	Save(ctx context.Context, s Session) error
	// Extend moves the expiry of the session only while token is still the
	// stored one. It reports false when the slot was cleared or replaced.
	Extend(ctx context.Context, userID int64, token string, expiresAt time.Time) (bool, error)
	// Clear removes the user's session; clearing twice is not an error.
	Clear(ctx context.Context, userID int64) error
}
