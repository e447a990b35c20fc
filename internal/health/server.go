// Package health exposes HTTP endpoints for liveness and metrics
// while a batch run is in flight.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/wikibot/internal/infra/mediawiki"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	session *mediawiki.Session
	server  *http.Server
}

// NewServer creates a new health server over the given session.
func NewServer(session *mediawiki.Session, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		session: session,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.session.Stats()

	status := "healthy"
	if !stats.LoggedIn {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         status,
		"site":           s.session.Name(),
		"logged_in":      stats.LoggedIn,
		"calls_ok":       stats.SuccessCount,
		"calls_failed":   stats.FailureCount,
		"avg_latency_ms": stats.AvgLatency.Milliseconds(),
	})
}
