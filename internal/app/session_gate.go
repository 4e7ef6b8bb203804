package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"bugtracker/internal/domain"
	"bugtracker/internal/metrics"

	"github.com/jonboulle/clockwork"
)

// DefaultSessionTimeout is the sliding session window.
const DefaultSessionTimeout = time.Hour

// SessionGate issues, validates and revokes the single session slot of each
// user. Expiry is checked when a token is presented; nothing sweeps expired
// sessions in the background.
type SessionGate struct {
	clock   clockwork.Clock
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewSessionGate creates a SessionGate. A non-positive timeout selects
// DefaultSessionTimeout.
func NewSessionGate(clock clockwork.Clock, timeout time.Duration, m *metrics.Metrics) *SessionGate {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionGate{clock: clock, timeout: timeout, metrics: m}
}

// Timeout returns the sliding session window.
func (g *SessionGate) Timeout() time.Duration {
	return g.timeout
}

// Login stores a fresh token for the user, replacing any earlier session.
func (g *SessionGate) Login(ctx context.Context, tx domain.Tx, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	s := domain.Session{UserID: userID, Token: token, ExpiresAt: g.clock.Now().Add(g.timeout)}
	if err := tx.Sessions().Save(ctx, s); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// Authenticate reports whether token is the user's live session token and,
// if so, slides the expiry forward. Missing arguments fail closed.
func (g *SessionGate) Authenticate(ctx context.Context, tx domain.Tx, userID int64, token string) (bool, error) {
	if userID <= 0 || token == "" {
		g.metrics.AuthAttempts.WithLabelValues("denied").Inc()
		return false, nil
	}

	s, err := tx.Sessions().Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	now := g.clock.Now()
	if !s.Live(now) || !constantTimeCompare(s.Token, token) {
		g.metrics.AuthAttempts.WithLabelValues("denied").Inc()
		return false, nil
	}

	// Extend only touches the slot if it still holds this token, so a
	// logout or newer login committed since the read is never undone.
	extended, err := tx.Sessions().Extend(ctx, userID, token, now.Add(g.timeout))
	if err != nil {
		return false, fmt.Errorf("extend session: %w", err)
	}
	if !extended {
		g.metrics.AuthAttempts.WithLabelValues("denied").Inc()
		return false, nil
	}
	g.metrics.AuthAttempts.WithLabelValues("ok").Inc()
	return true, nil
}

// Logout clears the user's session. Logging out twice is harmless.
func (g *SessionGate) Logout(ctx context.Context, tx domain.Tx, userID int64) error {
	if err := tx.Sessions().Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// tokenBytes is the entropy of a session token: 128 bits, 32 hex characters.
const tokenBytes = 16

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
