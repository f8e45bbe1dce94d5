// Package api serves the game over JSON HTTP endpoints under /api.
// POST /api/decision is rate limited per client address.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/empire-sim/internal/engine"
	"github.com/talgya/empire-sim/internal/scenario"
)

// Server serves one engine over HTTP.
type Server struct {
	Eng          *engine.Engine
	Addr         string
	CORSOrigins  []string // "*" allows any origin
	DecisionRate int      // Decisions per client per minute; 0 disables limiting

	limiter *RateLimiter
	srv     *http.Server
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/game-state/{player_id}", s.handleGameState)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/scenarios/{decision_type}", s.handleScenario)
	mux.HandleFunc("GET /api/analytics/{player_id}", s.handleAnalytics)
	mux.HandleFunc("GET /api/challenges", s.handleChallenges)
	mux.HandleFunc("GET /api/educational-content/{kind}", s.handleEducationalContent)

	switch s.Eng.Rules().EntityKind {
	case "country":
		mux.HandleFunc("GET /api/countries", s.handleOptions)
		mux.HandleFunc("POST /api/player", s.handleCreateCountry)
	default:
		mux.HandleFunc("GET /api/industries", s.handleOptions)
		mux.HandleFunc("POST /api/company", s.handleCreateCompany)
	}

	decide := http.HandlerFunc(s.handleDecision)
	if s.DecisionRate > 0 {
		if s.limiter == nil {
			s.limiter = NewRateLimiter(s.DecisionRate, time.Minute)
		}
		decide = RateLimitMiddleware(s.limiter, decide)
	}
	mux.Handle("POST /api/decision", decide)

	return corsMiddleware(s.CORSOrigins, mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.limiter != nil {
		go s.limiter.Sweep(ctx, time.Hour)
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr, "ruleset", s.Eng.Rules().Name, "decision_rate", s.DecisionRate)
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP API shutting down")
	return s.srv.Shutdown(shutdownCtx)
}

// corsMiddleware adds CORS headers for allowed origins. A "*" entry allows
// every origin.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeError writes {"detail": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

// writeEngineError maps engine and scenario sentinels to status codes.
func writeEngineError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, scenario.ErrInvalidChoice):
		writeError(w, http.StatusBadRequest, "Invalid choice")
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scenario.ErrNotFound):
		writeError(w, http.StatusNotFound, "Scenario not found")
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
