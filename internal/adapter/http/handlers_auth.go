// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"bugtracker/internal/app"
	"bugtracker/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	_, err := s.authSvc.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, app.ErrInvalidEmail), errors.Is(err, app.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, app.ErrUserExists):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.internalError(w, r, "register", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, token, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.internalError(w, r, "login", err)
		return
	}

	setSessionCookies(w, r, userID, token)
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "sessionId": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r.Context())
	if err := s.authSvc.Logout(r.Context(), userID); err != nil {
		s.internalError(w, r, "logout", err)
		return
	}

	for _, name := range []string{userIDCookie, sessionCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.authSvc.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, r, "list users", err)
		return
	}

	type userView struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{ID: u.ID, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sso_enabled": s.oidc.Enabled,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // the provider redirects back cross-site
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}

	state, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	token, err := s.oidc.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.internalError(w, r, "sso exchange", err)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token", http.StatusInternalServerError)
		return
	}

	idToken, err := s.oidc.Provider.Verifier(&oidc.Config{ClientID: s.oidc.OAuth2Config.ClientID}).Verify(r.Context(), rawIDToken)
	if err != nil {
		s.internalError(w, r, "sso verify", err)
		return
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err = idToken.Claims(&claims); err != nil || claims.Email == "" {
		http.Error(w, "no email claim", http.StatusBadRequest)
		return
	}

	userID, sessionToken, err := s.authSvc.LoginWithUser(r.Context(), claims.Email)
	if errors.Is(err, app.ErrInvalidEmail) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.internalError(w, r, "sso login", err)
		return
	}

	setSessionCookies(w, r, userID, sessionToken)
	http.Redirect(w, r, "/", http.StatusFound)
}

func setSessionCookies(w http.ResponseWriter, r *http.Request, userID int64, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     userIDCookie,
		Value:    strconv.FormatInt(userID, 10),
		Path:     "/",
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// internalError reports a data-access failure. Conflicts with concurrent
// requests are retryable and answered with 503.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrConflict) {
		s.logger.WarnContext(r.Context(), op, "error", err)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "conflict with a concurrent request, retry", http.StatusServiceUnavailable)
		return
	}
	s.logger.ErrorContext(r.Context(), op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func generateState() string {
	return uuid.NewString()
}
