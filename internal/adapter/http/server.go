package adapthttp

import (
	"log/slog"
	"net/http"

	"bugtracker/internal/app"
	"bugtracker/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	issues   *app.IssueService
	stats    *app.StatisticsService
	authSvc  *app.AuthService
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	oidc     OIDCConfig
	logger   *slog.Logger
	webDir   string
}

// New creates a Server wired to the given application services.
func New(is *app.IssueService, ss *app.StatisticsService, as *app.AuthService, m *metrics.Metrics, webDir string) *Server {
	return &Server{
		issues:   is,
		stats:    ss,
		authSvc:  as,
		metrics:  m,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
		webDir:   webDir,
	}
}

// WithOIDC enables SSO login through the given provider.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidc = cfg
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

// WithGatherer sets the registry exposed on /metrics.
func (s *Server) WithGatherer(g prometheus.Gatherer) *Server {
	s.gatherer = g
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("POST /register", s.handleRegister)
	api.HandleFunc("POST /login", s.handleLogin)
	api.Handle("POST /logout", s.requireSession(http.HandlerFunc(s.handleLogout)))
	api.HandleFunc("GET /users", s.handleUsers)

	api.HandleFunc("GET /issues", s.handleIssueList)
	api.Handle("POST /issues", s.requireSession(http.HandlerFunc(s.handleIssueCreate)))
	api.HandleFunc("GET /issues/{id}", s.handleIssueGet)
	api.Handle("PUT /issues/{id}", s.requireSession(http.HandlerFunc(s.handleIssueUpdate)))

	api.HandleFunc("GET /statistics", s.handleStatistics)

	api.HandleFunc("GET /auth/config", s.handleConfig)
	api.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(s.instrument(withNoCache(root)))
}
