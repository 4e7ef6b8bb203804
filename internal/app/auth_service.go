// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bugtracker/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidPassword indicates a password that cannot be used.
	ErrInvalidPassword = errors.New("password must be between 1 and 72 bytes")
	// ErrUserExists indicates that the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// emailPattern requires a non-empty local part and a domain made of
// non-empty dot-separated labels.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)*$`)

// unusablePasswordHash is stored for SSO-provisioned users; it is not a
// valid bcrypt hash so password login always fails for them.
const unusablePasswordHash = "!"

// AuthService handles registration, authentication and session management.
type AuthService struct {
	tx   domain.Transactor
	gate *SessionGate
	cost int
}

// NewAuthService creates a new authentication service.
func NewAuthService(tx domain.Transactor, gate *SessionGate) *AuthService {
	return &AuthService{
		tx:   tx,
		gate: gate,
		cost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost, mainly to speed up tests.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// SessionTimeout returns the sliding session window.
func (s *AuthService) SessionTimeout() time.Duration {
	return s.gate.Timeout()
}

// ValidEmail reports whether email looks like local@domain.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Register creates a user with a hashed password.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if password == "" || len(password) > 72 {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		user, err = tx.Users().Create(ctx, email, string(hash))
		if errors.Is(err, domain.ErrDuplicate) {
			return fmt.Errorf("%w: %q", ErrUserExists, email)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the password and opens a new session, replacing any previous
// one. It returns the user ID and session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (int64, string, error) {
	var (
		userID int64
		token  string
	)
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		user, err := tx.Users().GetByEmail(ctx, strings.TrimSpace(email))
		if err != nil {
			return err
		}
		if user == nil {
			return ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}

		token, err = s.gate.Login(ctx, tx, user.ID)
		userID = user.ID
		return err
	})
	if err != nil {
		return 0, "", err
	}
	return userID, token, nil
}

// LoginWithUser opens a session for a user already authenticated elsewhere
// (e.g. via SSO), provisioning the user on first sight.
func (s *AuthService) LoginWithUser(ctx context.Context, email string) (int64, string, error) {
	if !ValidEmail(email) {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	var (
		userID int64
		token  string
	)
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		user, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			user, err = tx.Users().Create(ctx, email, unusablePasswordHash)
			if err != nil {
				return err
			}
		}

		token, err = s.gate.Login(ctx, tx, user.ID)
		userID = user.ID
		return err
	})
	if err != nil {
		return 0, "", err
	}
	return userID, token, nil
}

// Authenticate reports whether token is the live session of userID, sliding
// its expiry on success.
func (s *AuthService) Authenticate(ctx context.Context, userID int64, token string) (bool, error) {
	var ok bool
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		ok, err = s.gate.Authenticate(ctx, tx, userID, token)
		return err
	})
	return ok, err
}

// Logout invalidates the user's session.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.tx.InTx(ctx, func(tx domain.Tx) error {
		return s.gate.Logout(ctx, tx, userID)
	})
}

// ListUsers returns all users ordered by email.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		users, err = tx.Users().List(ctx)
		return err
	})
	return users, err
}
