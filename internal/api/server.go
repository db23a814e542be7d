// Package api exposes the gateway's HTTP surface: the provider webhooks,
// the operator softphone's token and presence endpoints, and the log
// query endpoints consumed by the UI.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dispatchgw/dispatchgw/internal/api/middleware"
	"github.com/dispatchgw/dispatchgw/internal/config"
	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/directory"
	"github.com/dispatchgw/dispatchgw/internal/presence"
	"github.com/dispatchgw/dispatchgw/internal/routing"
	"github.com/dispatchgw/dispatchgw/internal/token"
	"github.com/dispatchgw/dispatchgw/internal/twiml"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	store    database.Store
	tracker  *presence.Tracker
	dir      *directory.Directory
	tokens   *token.Generator
	renderer *twiml.Renderer
	logger   *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(cfg *config.Config, store database.Store, tracker *presence.Tracker, dir *directory.Directory, tokens *token.Generator, logger *slog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		store:   store,
		tracker: tracker,
		dir:     dir,
		tokens:  tokens,
		renderer: &twiml.Renderer{
			FallbackMessage: cfg.FallbackMessage,
		},
		logger: logger.With("component", "api"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routingConfig maps the static config into the decision engine's input.
func (s *Server) routingConfig() routing.Config {
	return routing.Config{
		OperatorNumber:   s.cfg.OperatorNumber,
		OperatorIdentity: s.cfg.OperatorIdentity,
		StartHour:        s.cfg.BusinessHoursStart,
		EndHour:          s.cfg.BusinessHoursEnd,
		ClosedMessage:    s.cfg.ClosedMessage,
	}
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.StructuredLogger)

	apiLimiter := middleware.NewIPRateLimiter(middleware.DefaultRateLimitConfig())
	tokenLimiter := middleware.NewIPRateLimiter(middleware.TokenRateLimitConfig())

	r.Get("/", s.handleRoot)

	// Provider webhooks. Signature validation is optional so local
	// development without a public URL still works.
	r.Group(func(r chi.Router) {
		if s.cfg.ValidateSignature {
			r.Use(middleware.ValidateSignature(s.cfg.AuthToken, s.cfg.PublicBaseURL))
		}
		r.Post("/voice", s.handleVoice)
		r.Post("/sms", s.handleSMS)
	})

	// Softphone endpoints.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(tokenLimiter))
		r.Get("/token", s.handleToken)
	})
	r.Post("/client-status", s.handleClientStatus)

	// Log query surface for the UI.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(apiLimiter))
		r.Get("/call-logs", s.handleCallLogs)
		r.Get("/messages", s.handleMessageLogs)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
	})
}

// handleRoot is a plain liveness check.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("dispatch gateway is running"))
}

// handleHealth returns a JSON health envelope.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
