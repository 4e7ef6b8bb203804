package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bugtracker/internal/domain"
)

// UserRepo implements domain.UserRepository.
type UserRepo struct {
	q querier
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE LOWER(email) = LOWER($1)",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id, email, password_hash, created_at",
		email, passwordHash, time.Now().UTC(),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users ordered by email.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, email, password_hash, created_at FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SessionRepo implements the per-user session slot stored on the users row.
type SessionRepo struct {
	q querier
}

// Get retrieves the session of a user.
func (r *SessionRepo) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	var (
		token     sql.NullString
		expiresAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT session_token, session_expires_at FROM users WHERE id = $1",
		userID,
	).Scan(&token, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !token.Valid || !expiresAt.Valid {
		return nil, nil
	}
	return &domain.Session{UserID: userID, Token: token.String, ExpiresAt: expiresAt.Time}, nil
}

// Save overwrites the session of a user.
func (r *SessionRepo) Save(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE users SET session_token = $2, session_expires_at = $3 WHERE id = $1",
		s.UserID, s.Token, s.ExpiresAt.UTC(),
	)
	return err
}

// Extend moves the session expiry if token is still the stored one.
func (r *SessionRepo) Extend(ctx context.Context, userID int64, token string, expiresAt time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET session_expires_at = $3 WHERE id = $1 AND session_token = $2",
		userID, token, expiresAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Clear removes the session of a user.
func (r *SessionRepo) Clear(ctx context.Context, userID int64) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE users SET session_token = NULL, session_expires_at = NULL WHERE id = $1",
		userID,
	)
	return err
}
