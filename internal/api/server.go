// Package api implements the HTTP layer of the inquiry backend. Handlers are
// methods on *Server; each handler file covers one route group and only
// imports what it uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wednerevents/inquiry-backend/internal/submission"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// ServiceName and Version are reported by GET /health.
	ServiceName string
	Version     string

	// TrustProxy makes the client key come from X-Real-IP / X-Forwarded-For.
	// Enable only behind a proxy that sets those headers.
	TrustProxy bool

	// StaticDir, when non-empty, is served at / (the marketing frontend).
	// The caller checks that it exists.
	StaticDir string

	// RequestTimeout bounds every request. Default 30s.
	RequestTimeout time.Duration
}

// Server holds the shared dependencies. Each handler file attaches methods
// to this type and uses only the fields it needs.
type Server struct {
	// submit handles POST /send-email (full field set, rate limited).
	submit *submission.Handler

	// legacy handles POST /api/send-email. Nil when the route is disabled.
	legacy *submission.Handler

	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to an http.Server. legacy may be nil.
func NewServer(submit, legacy *submission.Handler, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "Wedner Events API"
	}

	s := &Server{
		submit: submit,
		legacy: legacy,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.loggerMiddleware)
	r.Use(s.recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/send-email", "/api/send-email":
			s.handlePostOnly(w, r)
		default:
			respondErr(w, http.StatusMethodNotAllowed, "method not supported")
		}
	})

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/test", s.handleTest)

	// ── Inquiries ─────────────────────────────────────────────────────────────
	r.Post("/send-email", s.handleSubmit(s.submit))
	r.Get("/send-email", s.handlePostOnly)

	if s.legacy != nil {
		r.Post("/api/send-email", s.handleSubmit(s.legacy))
		r.Get("/api/send-email", s.handlePostOnly)
	}

	// ── Frontend ──────────────────────────────────────────────────────────────
	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return r
}
