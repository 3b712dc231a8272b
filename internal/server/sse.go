package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/vigilance"
)

// streamCredential extracts the stream credential. The cookie wins over
// the query string, and "token" wins over "auth".
func streamCredential(r *http.Request) string {
	if c, err := r.Cookie(StreamCookie); err == nil && c.Value != "" {
		return c.Value
	}
	q := r.URL.Query()
	if v := q.Get("token"); v != "" {
		return v
	}
	return q.Get("auth")
}

// authorizeStream accepts the static secret or a live ephemeral token.
func (s *Server) authorizeStream(ctx context.Context, credential string) bool {
	if credential == "" {
		return false
	}
	if s.staticToken != "" && secretEqual(credential, s.staticToken) {
		return true
	}
	return s.tokens != nil && s.tokens.Validate(ctx, credential)
}

// handleStream handles GET /api/vigilance/stream (SSE endpoint).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	if !s.authorizeStream(r.Context(), streamCredential(r)) {
		streamRejected.Inc()
		// One message for missing, malformed, expired and unknown credentials.
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Attach queues the init payload ahead of any update.
	sink := vigilance.NewChanSink()
	defer sink.Close()
	id, detach, err := s.vig.Attach(sink)
	if err != nil {
		s.logger.Error("attaching stream subscriber", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Debug("stream opened", "subscriber", id, "remote", r.RemoteAddr)
	defer s.logger.Debug("stream closed", "subscriber", id)

	ctx := r.Context()
	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-sink.C():
			if err := writeSSEData(w, payload); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			// Send a comment line as keepalive.
			if _, err := fmt.Fprint(w, ":keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEData writes one payload as a single data line.
func writeSSEData(w http.ResponseWriter, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
