package api

import (
	"net/http"
	"time"
)

// ─── GET /health ──────────────────────────────────────────────────────────────

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, healthResponse{
		Status:    "running",
		Service:   s.cfg.ServiceName,
		Version:   s.cfg.Version,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

// ─── GET /test ────────────────────────────────────────────────────────────────

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"message": "Backend is working perfectly!"})
}
