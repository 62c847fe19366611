// Package api serves the journal and the chat assistant over HTTP/JSON.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/tradelog/assistant"
	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/tracker"
)

// maxBodyBytes bounds request bodies, including imported JSON exports.
const maxBodyBytes = 4 << 20

// Server holds the handlers' collaborators.
type Server struct {
	tracker   *tracker.Tracker
	assistant *assistant.Assistant
	limiter   *rate.Limiter
	busy      *busyGuard
	now       func() time.Time
}

func New(t *tracker.Tracker, a *assistant.Assistant, cfg config.ServerConfig) *Server {
	return &Server{
		tracker:   t,
		assistant: a,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		busy:      newBusyGuard(),
		now:       time.Now,
	}
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(contextualLogger)
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/greeting", s.handleGreeting)
		r.Get("/quote", s.handleQuote)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/sessions/import", s.handleImport)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)

			r.Get("/sessions/{id}/trades", s.handleListTrades)
			r.Post("/sessions/{id}/trades", s.handleAddTrade)
			r.Delete("/trades/{id}", s.handleDeleteTrade)

			r.Get("/sessions/{id}/stats", s.handleStats)
			r.Get("/sessions/{id}/dashboard", s.handleDashboard)
			r.Get("/sessions/{id}/export", s.handleExport)

			r.Post("/chat", s.handleChat)
			r.Post("/sessions/{id}/summary", s.handleSummary)
		})
	})

	return r
}

// HTTPServer wraps Routes in an http.Server configured from cfg.
func (s *Server) HTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
		IdleTimeout:  60 * time.Second,
	}
}
