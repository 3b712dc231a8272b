package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/praevisio/internal/vigilance"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPHandler returns an http.Handler with all routes registered. The
// stream and token routes authenticate on their own; the admin routes
// require the static token as a bearer credential.
func (s *Server) NewHTTPHandler() http.Handler {
	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/vigilance/events", s.handleEmit)
	admin.HandleFunc("POST /api/vigilance/clear", s.handleClear)
	admin.HandleFunc("POST /api/vigilance/flows/start", s.handleFlowsStart)
	admin.HandleFunc("POST /api/vigilance/flows/stop", s.handleFlowsStop)
	adminHandler := AuthMiddleware(s.staticToken, admin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vigilance/stream", s.handleStream)
	mux.HandleFunc("POST /api/vigilance/token", s.handleIssueToken)
	mux.HandleFunc("GET /api/vigilance/state", s.handleState)
	mux.HandleFunc("GET /api/vigilance/report", s.handleReport)
	mux.Handle("POST /api/vigilance/events", adminHandler)
	mux.Handle("POST /api/vigilance/clear", adminHandler)
	mux.Handle("POST /api/vigilance/flows/{action}", adminHandler)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return RecoveryMiddleware(LoggingMiddleware(s.logger, mux))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState handles GET /api/vigilance/state.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.vig.Snapshot())
}

// handleReport handles GET /api/vigilance/report.
func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.vig.Report()))
}

type emitRequest struct {
	Message string `json:"message"`
}

// handleEmit handles POST /api/vigilance/events.
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.vig.EmitEvent(r.Context(), req.Message); err != nil {
		if errors.Is(err, vigilance.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, s.vig.Snapshot())
}

// handleClear handles POST /api/vigilance/clear.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.vig.Clear(r.Context())
	writeJSON(w, http.StatusOK, s.vig.Snapshot())
}

type flowsResponse struct {
	Running bool `json:"running"`
}

// handleFlowsStart handles POST /api/vigilance/flows/start.
func (s *Server) handleFlowsStart(w http.ResponseWriter, _ *http.Request) {
	s.vig.Start()
	writeJSON(w, http.StatusOK, flowsResponse{Running: s.vig.Running()})
}

// handleFlowsStop handles POST /api/vigilance/flows/stop.
func (s *Server) handleFlowsStop(w http.ResponseWriter, _ *http.Request) {
	s.vig.Stop()
	writeJSON(w, http.StatusOK, flowsResponse{Running: s.vig.Running()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
