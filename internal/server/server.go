// Package server exposes a small admin HTTP API next to the bot: health,
// live session count and exercise statistics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deutschbot/deutschbot/internal/store"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// StatsSource aggregates exercise outcomes.
type StatsSource interface {
	ExerciseStats(ctx context.Context, opts store.QueryOpts) ([]store.TenseStats, error)
}

// Handler serves the admin routes.
type Handler struct {
	db       Pinger
	sessions SessionCounter
	stats    StatsSource
	logger   *slog.Logger

	// HealthTimeout bounds the database ping.
	HealthTimeout time.Duration
}

// NewHandler creates a Handler. A nil logger uses slog.Default().
func NewHandler(db Pinger, sessions SessionCounter, stats StatsSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:            db,
		sessions:      sessions,
		stats:         stats,
		logger:        logger,
		HealthTimeout: 5 * time.Second,
	}
}

// Router returns the chi router with all routes and middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/sessions", h.Sessions)
	r.Get("/stats", h.Stats)
	return r
}

// Health returns 200 when the database answers and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.HealthTimeout)
	defer cancel()

	status := map[string]any{"status": "healthy"}
	checks := map[string]string{"bot": "ok"}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}
	status["checks"] = checks

	JSON(w, code, status)
}

// Sessions returns the number of live sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]int{"active": h.sessions.Len()})
}

type tenseStats struct {
	Level    string  `json:"level"`
	Tense    string  `json:"tense"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Stats returns exercise outcomes per level and tense. The optional since
// query parameter is an RFC 3339 timestamp.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var opts store.QueryOpts
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			Error(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		opts.Since = since
	}

	rows, err := h.stats.ExerciseStats(r.Context(), opts)
	if err != nil {
		h.logger.Error("exercise stats failed", "error", err)
		Error(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	out := make([]tenseStats, 0, len(rows))
	for _, s := range rows {
		out = append(out, tenseStats{
			Level:    s.Level,
			Tense:    s.Tense,
			Total:    s.Total,
			Correct:  s.Correct,
			Accuracy: s.Accuracy(),
		})
	}
	JSON(w, http.StatusOK, out)
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Server runs the admin API until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New creates a Server listening on addr.
func New(addr string, h *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      h.Router(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
