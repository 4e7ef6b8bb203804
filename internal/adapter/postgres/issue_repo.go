package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bugtracker/internal/domain"
)

// IssueRepo implements domain.IssueRepository.
type IssueRepo struct {
	q querier
}

const issueSelect = `SELECT i.id, i.title, i.description, i.opened_at, i.closed_at, i.creator_id, c.email, i.assignee_id, a.email
	FROM issues i
	JOIN users c ON c.id = i.creator_id
	LEFT JOIN users a ON a.id = i.assignee_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (domain.Issue, error) {
	var (
		is            domain.Issue
		closed        sql.NullTime
		assigneeID    sql.NullInt64
		assigneeEmail sql.NullString
	)
	err := row.Scan(&is.ID, &is.Title, &is.Description, &is.Opened, &closed,
		&is.CreatorID, &is.CreatorEmail, &assigneeID, &assigneeEmail)
	if err != nil {
		return is, err
	}
	if closed.Valid {
		t := closed.Time
		is.Closed = &t
	}
	if assigneeID.Valid {
		id := assigneeID.Int64
		is.AssigneeID = &id
	}
	if assigneeEmail.Valid {
		email := assigneeEmail.String
		is.AssigneeEmail = &email
	}
	return is, nil
}

// Create inserts an open issue.
func (r *IssueRepo) Create(ctx context.Context, creatorID int64, title, description string, opened time.Time) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx,
		"INSERT INTO issues (title, description, opened_at, creator_id) VALUES ($1, $2, $3, $4) RETURNING id",
		title, description, opened.UTC(), creatorID,
	).Scan(&id)
	return id, err
}

// GetByID retrieves an issue by ID.
func (r *IssueRepo) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	is, err := scanIssue(r.q.QueryRowContext(ctx, issueSelect+" WHERE i.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &is, nil
}

// List returns every issue ordered by ID.
func (r *IssueRepo) List(ctx context.Context) ([]domain.Issue, error) {
	rows, err := r.q.QueryContext(ctx, issueSelect+" ORDER BY i.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Issue
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

// Update writes the mutable fields of an issue.
func (r *IssueRepo) Update(ctx context.Context, issue *domain.Issue) error {
	var closed *time.Time
	if issue.Closed != nil {
		c := issue.Closed.UTC()
		closed = &c
	}
	_, err := r.q.ExecContext(ctx,
		"UPDATE issues SET title = $2, description = $3, closed_at = $4, assignee_id = $5 WHERE id = $1",
		issue.ID, issue.Title, issue.Description, closed, issue.AssigneeID,
	)
	return err
}

// Intervals returns every issue lifetime in sweep order.
func (r *IssueRepo) Intervals(ctx context.Context) ([]domain.Interval, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT opened_at, closed_at FROM issues ORDER BY opened_at ASC, closed_at ASC NULLS LAST")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Interval
	for rows.Next() {
		var (
			iv     domain.Interval
			closed sql.NullTime
		)
		if err := rows.Scan(&iv.Opened, &closed); err != nil {
			return nil, err
		}
		if closed.Valid {
			t := closed.Time
			iv.Closed = &t
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// CountOpen counts issues not closed at or before now.
func (r *IssueRepo) CountOpen(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issues WHERE closed_at IS NULL OR closed_at > $1",
		now.UTC(),
	).Scan(&n)
	return n, err
}

// CountClosedBetween counts issues closed within [from, to].
func (r *IssueRepo) CountClosedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issues WHERE closed_at >= $1 AND closed_at <= $2",
		from.UTC(), to.UTC(),
	).Scan(&n)
	return n, err
}
