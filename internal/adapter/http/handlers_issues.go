package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata" // ?tz must work without a system zoneinfo database

	"bugtracker/internal/app"
	"bugtracker/internal/domain"
)

type issueView struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Opened        time.Time  `json:"opened"`
	Closed        *time.Time `json:"closed"`
	CreatorID     int64      `json:"creatorId"`
	CreatorEmail  string     `json:"creatorEmail"`
	AssigneeID    *int64     `json:"assigneeId"`
	AssigneeEmail *string    `json:"assigneeEmail"`
}

func newIssueView(is domain.Issue, loc *time.Location) issueView {
	v := issueView{
		ID:            is.ID,
		Title:         is.Title,
		Description:   is.Description,
		Opened:        is.Opened.In(loc),
		CreatorID:     is.CreatorID,
		CreatorEmail:  is.CreatorEmail,
		AssigneeID:    is.AssigneeID,
		AssigneeEmail: is.AssigneeEmail,
	}
	if is.Closed != nil {
		c := is.Closed.In(loc)
		v.Closed = &c
	}
	return v
}

// location resolves the optional ?tz= parameter; times default to UTC.
func location(r *http.Request) (*time.Location, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", tz)
	}
	return loc, nil
}

func (s *Server) handleIssueList(w http.ResponseWriter, r *http.Request) {
	loc, err := location(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	issues, err := s.issues.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list issues", err)
		return
	}
	out := make([]issueView, 0, len(issues))
	for _, is := range issues {
		out = append(out, newIssueView(is, loc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": out})
}

func (s *Server) handleIssueCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, _ := currentUser(r.Context())
	id, err := s.issues.Create(r.Context(), userID, body.Title, body.Description)
	switch {
	case errors.Is(err, app.ErrInvalidIssue), errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.internalError(w, r, "create issue", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/issues/%d", id))
	w.WriteHeader(http.StatusSeeOther)
}

func (s *Server) handleIssueGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	loc, err := location(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	issue, err := s.issues.Get(r.Context(), id)
	if errors.Is(err, app.ErrIssueNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.internalError(w, r, "get issue", err)
		return
	}
	writeJSON(w, http.StatusOK, newIssueView(*issue, loc))
}

func (s *Server) handleIssueUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var patch domain.IssuePatch
	if err := parseJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}

	err = s.issues.Update(r.Context(), id, patch)
	switch {
	case errors.Is(err, app.ErrIssueNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, app.ErrInvalidIssue), errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.internalError(w, r, "update issue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
