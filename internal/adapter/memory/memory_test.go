package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bugtracker/internal/domain"
)

func TestIssueRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	opened := time.Date(2019, 1, 5, 12, 0, 0, 0, time.UTC)

	err := db.InTx(ctx, func(tx domain.Tx) error {
		u, err := tx.Users().Create(ctx, "justin@example.com", "hash")
		if err != nil {
			t.Fatalf("Create user: %v", err)
		}

		id, err := tx.Issues().Create(ctx, u.ID, "Test Issue", "Description", opened)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if id == 0 {
			t.Error("expected non-zero ID")
		}

		issue, err := tx.Issues().GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if issue == nil {
			t.Fatal("expected issue, got nil")
		}
		if issue.CreatorEmail != "justin@example.com" {
			t.Errorf("expected creator email, got %q", issue.CreatorEmail)
		}
		if !issue.IsOpen() {
			t.Error("expected new issue to be open")
		}

		closedAt := opened.Add(48 * time.Hour)
		issue.Closed = &closedAt
		issue.AssigneeID = &u.ID
		if err := tx.Issues().Update(ctx, issue); err != nil {
			t.Fatalf("Update: %v", err)
		}

		issue, _ = tx.Issues().GetByID(ctx, id)
		if issue.Closed == nil || !issue.Closed.Equal(closedAt) {
			t.Errorf("expected closed %v, got %v", closedAt, issue.Closed)
		}
		if issue.AssigneeEmail == nil || *issue.AssigneeEmail != "justin@example.com" {
			t.Errorf("expected assignee email, got %v", issue.AssigneeEmail)
		}

		missing, _ := tx.Issues().GetByID(ctx, 999)
		if missing != nil {
			t.Error("expected nil for missing issue")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

func TestIssueCounts(t *testing.T) {
	db := New()
	ctx := context.Background()
	base := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		repo := tx.Issues()
		a, _ := repo.Create(ctx, 1, "a", "", base)
		b, _ := repo.Create(ctx, 1, "b", "", base.Add(-time.Hour))
		_, _ = repo.Create(ctx, 1, "c", "", base.Add(time.Hour))

		closeAt := func(id int64, at time.Time) {
			is, _ := repo.GetByID(ctx, id)
			is.Closed = &at
			_ = repo.Update(ctx, is)
		}
		closeAt(a, base.Add(24*time.Hour))
		closeAt(b, base.Add(10*24*time.Hour))
		return nil
	})

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		now := base.Add(2 * 24 * time.Hour)
		open, _ := tx.Issues().CountOpen(ctx, now)
		if open != 2 {
			t.Errorf("expected 2 open, got %d", open)
		}
		n, _ := tx.Issues().CountClosedBetween(ctx, now.Add(-7*24*time.Hour), now)
		if n != 1 {
			t.Errorf("expected 1 closed in window, got %d", n)
		}

		intervals, _ := tx.Issues().Intervals(ctx)
		if len(intervals) != 3 {
			t.Fatalf("expected 3 intervals, got %d", len(intervals))
		}
		if !intervals[0].Opened.Equal(base.Add(-time.Hour)) {
			t.Errorf("expected intervals ordered by opened, got %v first", intervals[0].Opened)
		}
		if intervals[2].Closed != nil {
			t.Error("expected the open issue last")
		}
		return nil
	})
}

func TestUserRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		u, err := tx.Users().Create(ctx, "zed@example.com", "hash")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := tx.Users().Create(ctx, "ZED@example.com", "hash"); !errors.Is(err, domain.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
		_, _ = tx.Users().Create(ctx, "adam@example.com", "hash")

		u2, err := tx.Users().GetByEmail(ctx, "zed@example.com")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if u2 == nil || u2.ID != u.ID {
			t.Error("failed to retrieve user")
		}

		users, _ := tx.Users().List(ctx)
		if len(users) != 2 || users[0].Email != "adam@example.com" {
			t.Errorf("expected users ordered by email, got %+v", users)
		}
		return nil
	})
}

func TestSessionRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		u, _ := tx.Users().Create(ctx, "bob@example.com", "hash")
		repo := tx.Sessions()

		err := repo.Save(ctx, domain.Session{UserID: u.ID, Token: "token123", ExpiresAt: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}

		sess, err := repo.Get(ctx, u.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if sess == nil || sess.Token != "token123" {
			t.Errorf("expected stored session, got %+v", sess)
		}

		later := time.Now().Add(2 * time.Hour)
		if ok, _ := repo.Extend(ctx, u.ID, "stale", later); ok {
			t.Error("expected Extend with a different token to fail")
		}
		if ok, _ := repo.Extend(ctx, u.ID, "token123", later); !ok {
			t.Error("expected Extend with the stored token to succeed")
		}
		sess, _ = repo.Get(ctx, u.ID)
		if sess == nil || !sess.ExpiresAt.Equal(later) {
			t.Errorf("expected expiry %v, got %+v", later, sess)
		}

		_ = repo.Clear(ctx, u.ID)
		_ = repo.Clear(ctx, u.ID)
		if ok, _ := repo.Extend(ctx, u.ID, "token123", later); ok {
			t.Error("expected Extend on a cleared slot to fail")
		}
		sess, _ = repo.Get(ctx, u.ID)
		if sess != nil {
			t.Error("expected nil (cleared)")
		}
		return nil
	})
}

func TestStatCache(t *testing.T) {
	db := New()
	ctx := context.Background()

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		cache := tx.StatCache()
		if _, ok, _ := cache.Get(ctx, domain.StatMaxOpen); ok {
			t.Error("expected empty cache")
		}
		inserted, _ := cache.InsertIfAbsent(ctx, domain.StatMaxOpen, 6)
		if !inserted {
			t.Error("expected first insert to succeed")
		}
		inserted, _ = cache.InsertIfAbsent(ctx, domain.StatMaxOpen, 7)
		if inserted {
			t.Error("expected second insert to be refused")
		}
		v, ok, _ := cache.Get(ctx, domain.StatMaxOpen)
		if !ok || v != 6 {
			t.Errorf("expected 6, got %d (ok=%v)", v, ok)
		}
		_ = cache.Delete(ctx, domain.StatMaxOpen)
		if _, ok, _ := cache.Get(ctx, domain.StatMaxOpen); ok {
			t.Error("expected value deleted")
		}
		return nil
	})
}

func TestInTxRollback(t *testing.T) {
	db := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx domain.Tx) error {
		_, _ = tx.Users().Create(ctx, "gone@example.com", "hash")
		_, _ = tx.StatCache().InsertIfAbsent(ctx, domain.StatMaxOpen, 1)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_ = db.InTx(ctx, func(tx domain.Tx) error {
		users, _ := tx.Users().List(ctx)
		if len(users) != 0 {
			t.Errorf("expected rollback to drop user, got %d users", len(users))
		}
		if _, ok, _ := tx.StatCache().Get(ctx, domain.StatMaxOpen); ok {
			t.Error("expected rollback to drop cached value")
		}
		return nil
	})
}
