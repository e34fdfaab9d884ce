package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler builds the router: the WebSocket endpoint at the configured path,
// GET /health and GET /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	path := s.wsCfg.Path
	if path == "" {
		path = "/"
	}
	r.Get(path, s.handleWebSocket)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"clients": s.hub.ClientCount(),
	})
}
