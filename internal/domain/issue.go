package domain

import (
	"context"
	"time"
)

// Issue is a tracked issue. Closed is nil while the issue is open.
type Issue struct {
	ID            int64
	Title         string
	Description   string
	Opened        time.Time
	Closed        *time.Time
	CreatorID     int64
	CreatorEmail  string
	AssigneeID    *int64
	AssigneeEmail *string
}

// IsOpen reports whether the issue has no close time.
func (i *Issue) IsOpen() bool {
	return i.Closed == nil
}

// Interval returns the (opened, closed) pair of the issue.
func (i *Issue) Interval() Interval {
	return Interval{Opened: i.Opened, Closed: i.Closed}
}

// Interval is the lifetime of one issue. Closed is nil while the issue is
// still open.
type Interval struct {
	Opened time.Time
	Closed *time.Time
}

// IssuePatch carries the optional changes of an issue update. A nil field is
// left untouched.
type IssuePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	// Closed closes (true) or reopens (false) the issue.
	Closed *bool `json:"closed,omitempty"`
	// AssigneeID assigns the issue; zero or negative unassigns it.
	AssigneeID *int64 `json:"assigneeId,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Closed == nil && p.AssigneeID == nil
}

// IssueRepository defines the port for issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, creatorID int64, title, description string, opened time.Time) (int64, error)
	GetByID(ctx context.Context, id int64) (*Issue, error)
	List(ctx context.Context) ([]Issue, error)
	Update(ctx context.Context, issue *Issue) error

	// Intervals returns every issue's lifetime ordered by opened time, then
	// closed time, with still-open issues last among equal opened times.
	Intervals(ctx context.Context) ([]Interval, error)
	// CountOpen counts issues not closed at or before now.
	CountOpen(ctx context.Context, now time.Time) (int, error)
	// CountClosedBetween counts issues closed within [from, to].
	CountClosedBetween(ctx context.Context, from, to time.Time) (int, error)
}
