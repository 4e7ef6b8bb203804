package app

import (
	"context"
	"errors"
	"time"

	"bugtracker/internal/domain"
)

type mockTransactor struct {
	tx    *mockTx
	calls int
}

func (m *mockTransactor) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	m.calls++
	return fn(m.tx)
}

type mockTx struct {
	issues   *mockIssueRepo
	users    *mockUserRepo
	sessions *mockSessionRepo
	stats    *mockStatCache
}

func newMockTx() *mockTx {
	return &mockTx{
		issues:   &mockIssueRepo{},
		users:    &mockUserRepo{},
		sessions: &mockSessionRepo{},
		stats:    &mockStatCache{},
	}
}

func (m *mockTx) Issues() domain.IssueRepository     { return m.issues }
func (m *mockTx) Users() domain.UserRepository       { return m.users }
func (m *mockTx) Sessions() domain.SessionRepository { return m.sessions }
func (m *mockTx) StatCache() domain.StatCacheStore   { return m.stats }

type mockIssueRepo struct {
	createFn      func(ctx context.Context, creatorID int64, title, description string, opened time.Time) (int64, error)
	getByIDFn     func(ctx context.Context, id int64) (*domain.Issue, error)
	listFn        func(ctx context.Context) ([]domain.Issue, error)
	updateFn      func(ctx context.Context, issue *domain.Issue) error
	intervalsFn   func(ctx context.Context) ([]domain.Interval, error)
	countOpenFn   func(ctx context.Context, now time.Time) (int, error)
	countClosedFn func(ctx context.Context, from, to time.Time) (int, error)

	intervalCalls int
}

func (m *mockIssueRepo) Create(ctx context.Context, creatorID int64, title, description string, opened time.Time) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, creatorID, title, description, opened)
	}
	return 1, nil
}

func (m *mockIssueRepo) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockIssueRepo) List(ctx context.Context) ([]domain.Issue, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockIssueRepo) Update(ctx context.Context, issue *domain.Issue) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, issue)
	}
	return nil
}

func (m *mockIssueRepo) Intervals(ctx context.Context) ([]domain.Interval, error) {
	m.intervalCalls++
	if m.intervalsFn != nil {
		return m.intervalsFn(ctx)
	}
	return nil, nil
}

func (m *mockIssueRepo) CountOpen(ctx context.Context, now time.Time) (int, error) {
	if m.countOpenFn != nil {
		return m.countOpenFn(ctx, now)
	}
	return 0, nil
}

func (m *mockIssueRepo) CountClosedBetween(ctx context.Context, from, to time.Time) (int, error) {
	if m.countClosedFn != nil {
		return m.countClosedFn(ctx, from, to)
	}
	return 0, nil
}

type mockUserRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.User, error)
	createFn     func(ctx context.Context, email, passwordHash string) (*domain.User, error)
	listFn       func(ctx context.Context) ([]domain.User, error)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, passwordHash)
	}
	return &domain.User{ID: 1, Email: email, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockSessionRepo struct {
	getFn    func(ctx context.Context, userID int64) (*domain.Session, error)
	saveFn   func(ctx context.Context, s domain.Session) error
	extendFn func(ctx context.Context, userID int64, token string, expiresAt time.Time) (bool, error)
	clearFn  func(ctx context.Context, userID int64) error
}

func (m *mockSessionRepo) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSessionRepo) Save(ctx context.Context, s domain.Session) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	return nil
}

func (m *mockSessionRepo) Extend(ctx context.Context, userID int64, token string, expiresAt time.Time) (bool, error) {
	if m.extendFn != nil {
		return m.extendFn(ctx, userID, token, expiresAt)
	}
	return true, nil
}

func (m *mockSessionRepo) Clear(ctx context.Context, userID int64) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

// mockStatCache is a working map-backed cache unless a hook overrides it.
type mockStatCache struct {
	values   map[string]int64
	getErr   error
	insertFn func(ctx context.Context, name string, value int64) (bool, error)
	deletes  int
}

func (m *mockStatCache) Get(ctx context.Context, name string) (int64, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *mockStatCache) InsertIfAbsent(ctx context.Context, name string, value int64) (bool, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, name, value)
	}
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	if _, ok := m.values[name]; ok {
		return false, nil
	}
	m.values[name] = value
	return true, nil
}

func (m *mockStatCache) Delete(ctx context.Context, name string) error {
	m.deletes++
	delete(m.values, name)
	return nil
}

var errStoreDown = errors.New("store unavailable")
