package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contextKey string

const userContextKey contextKey = "user"

const (
	userIDHeader    = "X-User-Id"
	sessionIDHeader = "X-Session-Id"
	userIDCookie    = "user_id"
	sessionCookie   = "session"
)

var errNoCredentials = errors.New("missing credentials")

// credentials reads the user ID and session token from the request headers,
// falling back to the cookies set at login.
func credentials(r *http.Request) (int64, string, error) {
	rawID, token := r.Header.Get(userIDHeader), r.Header.Get(sessionIDHeader)
	if rawID == "" || token == "" {
		idCookie, err := r.Cookie(userIDCookie)
		if err != nil {
			return 0, "", errNoCredentials
		}
		tokenCookie, err := r.Cookie(sessionCookie)
		if err != nil {
			return 0, "", errNoCredentials
		}
		rawID, token = idCookie.Value, tokenCookie.Value
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || token == "" {
		return 0, "", errNoCredentials
	}
	return userID, token, nil
}

// requireSession authenticates the caller and stores their user ID in the
// request context. Every successful check slides the session expiry.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, token, err := credentials(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ok, err := s.authSvc.Authenticate(r.Context(), userID, token)
		if err != nil {
			s.internalError(w, r, "authenticate", err)
			return
		}
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the user ID stored by requireSession.
func currentUser(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userContextKey).(int64)
	return id, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return promhttp.InstrumentHandlerDuration(s.metrics.HTTPRequestDuration,
		promhttp.InstrumentHandlerCounter(s.metrics.HTTPRequests, next))
}
