// Package memory implements an in-memory store for development and testing.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"bugtracker/internal/domain"
)

// DB implements an in-memory database storage. Units of work are serialised
// by a single mutex and rolled back by restoring a snapshot.
type DB struct {
	mu sync.Mutex
	st state
}

type state struct {
	issues   []domain.Issue
	users    []domain.User
	sessions map[int64]domain.Session
	stats    map[string]int64

	issueIDCounter int64
	userIDCounter  int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{st: state{
		sessions: make(map[int64]domain.Session),
		stats:    make(map[string]int64),
	}}
}

// Ensure interfaces are met.
var _ domain.Transactor = (*DB)(nil)
var _ domain.IssueRepository = issueRepo{}
var _ domain.UserRepository = userRepo{}
var _ domain.SessionRepository = sessionRepo{}
var _ domain.StatCacheStore = statRepo{}

// InTx runs fn against the database, discarding every change if fn fails.
func (db *DB) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.st.clone()
	committed := false
	defer func() {
		if !committed {
			db.st = snapshot
		}
	}()

	if err := fn(tx{st: &db.st}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s state) clone() state {
	issues := make([]domain.Issue, len(s.issues))
	for i, is := range s.issues {
		issues[i] = cloneIssue(is)
	}
	return state{
		issues:         issues,
		users:          slices.Clone(s.users),
		sessions:       maps.Clone(s.sessions),
		stats:          maps.Clone(s.stats),
		issueIDCounter: s.issueIDCounter,
		userIDCounter:  s.userIDCounter,
	}
}

func cloneIssue(is domain.Issue) domain.Issue {
	if is.Closed != nil {
		c := *is.Closed
		is.Closed = &c
	}
	if is.AssigneeID != nil {
		a := *is.AssigneeID
		is.AssigneeID = &a
	}
	is.AssigneeEmail = nil
	is.CreatorEmail = ""
	return is
}

type tx struct {
	st *state
}

func (t tx) Issues() domain.IssueRepository     { return issueRepo{t.st} }
func (t tx) Users() domain.UserRepository       { return userRepo{t.st} }
func (t tx) Sessions() domain.SessionRepository { return sessionRepo{t.st} }
func (t tx) StatCache() domain.StatCacheStore   { return statRepo{t.st} }

func (s *state) user(id int64) *domain.User {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i]
		}
	}
	return nil
}

// --- IssueRepository ---

type issueRepo struct {
	st *state
}

// Create adds an open issue.
func (r issueRepo) Create(ctx context.Context, creatorID int64, title, description string, opened time.Time) (int64, error) {
	r.st.issueIDCounter++
	r.st.issues = append(r.st.issues, domain.Issue{
		ID:          r.st.issueIDCounter,
		Title:       title,
		Description: description,
		Opened:      opened.UTC(),
		CreatorID:   creatorID,
	})
	return r.st.issueIDCounter, nil
}

// GetByID returns nil when the issue does not exist.
func (r issueRepo) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	for _, is := range r.st.issues {
		if is.ID == id {
			out := r.withEmails(is)
			return &out, nil
		}
	}
	return nil, nil
}

// List returns all issues ordered by id.
func (r issueRepo) List(ctx context.Context) ([]domain.Issue, error) {
	out := make([]domain.Issue, 0, len(r.st.issues))
	for _, is := range r.st.issues {
		out = append(out, r.withEmails(is))
	}
	slices.SortFunc(out, func(a, b domain.Issue) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r issueRepo) withEmails(is domain.Issue) domain.Issue {
	is = cloneIssue(is)
	if u := r.st.user(is.CreatorID); u != nil {
		is.CreatorEmail = u.Email
	}
	if is.AssigneeID != nil {
		if u := r.st.user(*is.AssigneeID); u != nil {
			email := u.Email
			is.AssigneeEmail = &email
		}
	}
	return is
}

// Update overwrites the mutable fields of an existing issue.
func (r issueRepo) Update(ctx context.Context, issue *domain.Issue) error {
	for i := range r.st.issues {
		if r.st.issues[i].ID == issue.ID {
			stored := cloneIssue(*issue)
			stored.Opened = r.st.issues[i].Opened
			stored.CreatorID = r.st.issues[i].CreatorID
			if stored.Closed != nil {
				c := stored.Closed.UTC()
				stored.Closed = &c
			}
			r.st.issues[i] = stored
			return nil
		}
	}
	return nil
}

// Intervals returns all issue lifetimes in sweep order.
func (r issueRepo) Intervals(ctx context.Context) ([]domain.Interval, error) {
	out := make([]domain.Interval, 0, len(r.st.issues))
	for _, is := range r.st.issues {
		c := cloneIssue(is)
		out = append(out, c.Interval())
	}
	domain.SortIntervals(out)
	return out, nil
}

// CountOpen counts issues not closed at or before now.
func (r issueRepo) CountOpen(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for _, is := range r.st.issues {
		if is.Closed == nil || is.Closed.After(now) {
			n++
		}
	}
	return n, nil
}

// CountClosedBetween counts issues closed within [from, to].
func (r issueRepo) CountClosedBetween(ctx context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, is := range r.st.issues {
		if is.Closed != nil && !is.Closed.Before(from) && !is.Closed.After(to) {
			n++
		}
	}
	return n, nil
}

// --- UserRepository ---

type userRepo struct {
	st *state
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u := r.st.user(id); u != nil {
		out := *u
		return &out, nil
	}
	return nil, nil
}

// Create creates a new user.
func (r userRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			return nil, domain.ErrDuplicate
		}
	}

	r.st.userIDCounter++
	u := domain.User{
		ID:           r.st.userIDCounter,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.st.users = append(r.st.users, u)
	return &u, nil
}

// List returns all users ordered by email.
func (r userRepo) List(ctx context.Context) ([]domain.User, error) {
	out := slices.Clone(r.st.users)
	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

// --- SessionRepository ---

type sessionRepo struct {
	st *state
}

// Get returns the user's session slot.
func (r sessionRepo) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	s, ok := r.st.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Save overwrites the user's session. Unknown users are ignored, matching an
// UPDATE that touches no row.
func (r sessionRepo) Save(ctx context.Context, s domain.Session) error {
	if r.st.user(s.UserID) == nil {
		return nil
	}
	r.st.sessions[s.UserID] = s
	return nil
}

// Extend moves the expiry while token is still the stored one.
func (r sessionRepo) Extend(ctx context.Context, userID int64, token string, expiresAt time.Time) (bool, error) {
	s, ok := r.st.sessions[userID]
	if !ok || s.Token != token {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	r.st.sessions[userID] = s
	return true, nil
}

// Clear removes the user's session.
func (r sessionRepo) Clear(ctx context.Context, userID int64) error {
	delete(r.st.sessions, userID)
	return nil
}

// --- StatCacheStore ---

type statRepo struct {
	st *state
}

// Get returns a cached statistic.
func (r statRepo) Get(ctx context.Context, name string) (int64, bool, error) {
	v, ok := r.st.stats[name]
	return v, ok, nil
}

// InsertIfAbsent stores a statistic unless one is already cached.
func (r statRepo) InsertIfAbsent(ctx context.Context, name string, value int64) (bool, error) {
	if _, ok := r.st.stats[name]; ok {
		return false, nil
	}
	r.st.stats[name] = value
	return true, nil
}

// Delete drops a cached statistic.
func (r statRepo) Delete(ctx context.Context, name string) error {
	delete(r.st.stats, name)
	return nil
}
