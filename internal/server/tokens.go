package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/token"
)

// maxTokenTTL bounds the lifetime a caller may request. Longer requests
// are clamped.
const maxTokenTTL = 24 * time.Hour

type issueTokenRequest struct {
	TTL *float64 `json:"ttl"` // seconds
}

// handleIssueToken handles POST /api/vigilance/token.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if ok, wait := s.limiter.allow(clientKey(r)); !ok {
		tokensRateLimited.Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	ttl, err := parseTokenTTL(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := s.tokens.Generate(r.Context(), ttl)
	if err != nil {
		s.logger.Error("issuing stream token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	tokensIssued.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     StreamCookie,
		Value:    tok.Value,
		Path:     "/",
		MaxAge:   cookieMaxAge(ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, tok)
}

// parseTokenTTL reads the optional {"ttl": seconds} body. An empty body
// means token.DefaultTTL.
func parseTokenTTL(body io.Reader) (time.Duration, error) {
	var req issueTokenRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return token.DefaultTTL, nil
		}
		return 0, errors.New("invalid request body")
	}
	if req.TTL == nil {
		return token.DefaultTTL, nil
	}
	secs := math.Max(-maxTokenTTL.Seconds(), math.Min(*req.TTL, maxTokenTTL.Seconds()))
	return time.Duration(secs * float64(time.Second)), nil
}

// cookieMaxAge converts a TTL to a cookie Max-Age. A non-positive TTL
// yields -1, which tells the browser to drop the cookie.
func cookieMaxAge(ttl time.Duration) int {
	if ttl <= 0 {
		return -1
	}
	return int(math.Ceil(ttl.Seconds()))
}
