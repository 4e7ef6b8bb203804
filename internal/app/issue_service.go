package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bugtracker/internal/domain"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrIssueNotFound indicates that the issue does not exist.
	ErrIssueNotFound = errors.New("issue not found")
	// ErrInvalidIssue indicates an issue field failed validation.
	ErrInvalidIssue = errors.New("invalid issue")
)

// IssueService encapsulates issue-tracking use cases.
type IssueService struct {
	tx    domain.Transactor
	stats *StatsCache
	clock clockwork.Clock
}

// NewIssueService creates an IssueService. Writes that change when issues
// are open invalidate stats.
func NewIssueService(tx domain.Transactor, stats *StatsCache, clock clockwork.Clock) *IssueService {
	return &IssueService{tx: tx, stats: stats, clock: clock}
}

// Create files a new open issue on behalf of creatorID.
func (s *IssueService) Create(ctx context.Context, creatorID int64, title, description string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalidIssue)
	}

	var id int64
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		creator, err := tx.Users().GetByID(ctx, creatorID)
		if err != nil {
			return err
		}
		if creator == nil {
			return ErrUserNotFound
		}

		id, err = tx.Issues().Create(ctx, creatorID, title, description, s.clock.Now())
		if err != nil {
			return fmt.Errorf("create issue: %w", err)
		}
		return s.stats.Invalidate(ctx, tx)
	})
	return id, err
}

// Get returns a single issue.
func (s *IssueService) Get(ctx context.Context, id int64) (*domain.Issue, error) {
	var issue *domain.Issue
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		issue, err = tx.Issues().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return ErrIssueNotFound
		}
		return nil
	})
	return issue, err
}

// List returns all issues ordered by ID.
func (s *IssueService) List(ctx context.Context) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := s.tx.InTx(ctx, func(tx domain.Tx) error {
		var err error
		issues, err = tx.Issues().List(ctx)
		return err
	})
	return issues, err
}

// Update applies patch to an issue. Closing an already closed issue keeps
// its original close time.
func (s *IssueService) Update(ctx context.Context, id int64, patch domain.IssuePatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidIssue)
	}

	return s.tx.InTx(ctx, func(tx domain.Tx) error {
		issue, err := tx.Issues().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return ErrIssueNotFound
		}

		lifetimeChanged := false
		if patch.Title != nil {
			issue.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			issue.Description = *patch.Description
		}
		if patch.Closed != nil {
			switch {
			case *patch.Closed && issue.IsOpen():
				now := s.clock.Now()
				if now.Before(issue.Opened) {
					now = issue.Opened
				}
				issue.Closed = &now
				lifetimeChanged = true
			case !*patch.Closed && !issue.IsOpen():
				issue.Closed = nil
				lifetimeChanged = true
			}
		}
		if patch.AssigneeID != nil {
			if *patch.AssigneeID <= 0 {
				issue.AssigneeID = nil
			} else {
				assignee, err := tx.Users().GetByID(ctx, *patch.AssigneeID)
				if err != nil {
					return err
				}
				if assignee == nil {
					return fmt.Errorf("%w: assignee %d", ErrUserNotFound, *patch.AssigneeID)
				}
				assigneeID := assignee.ID
				issue.AssigneeID = &assigneeID
			}
		}

		if err := tx.Issues().Update(ctx, issue); err != nil {
			return fmt.Errorf("update issue %d: %w", id, err)
		}
		if lifetimeChanged {
			return s.stats.Invalidate(ctx, tx)
		}
		return nil
	})
}
