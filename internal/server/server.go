// Package server exposes the vigilance stream and its token gateway over HTTP.
package server

import (
	"log/slog"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/token"
	"github.com/alfredjeanlab/praevisio/internal/vigilance"
)

const (
	// StreamCookie carries a stream credential. It takes precedence over
	// the token and auth query parameters.
	StreamCookie = "praevisio_sse_token"

	defaultKeepalive = 15 * time.Second
)

// Options configures a Server.
type Options struct {
	Vigilance *vigilance.Service
	Tokens    *token.Service
	// StaticToken is the long-lived stream secret. It also guards the
	// admin routes as a bearer token. Empty disables both uses.
	StaticToken     string
	TokenRateLimit  int
	TokenRateWindow time.Duration
	Logger          *slog.Logger
}

// Server holds the HTTP handlers. It owns no state beyond the rate limiter.
type Server struct {
	vig         *vigilance.Service
	tokens      *token.Service
	staticToken string
	limiter     *rateLimiter
	logger      *slog.Logger
	keepalive   time.Duration
}

// New returns a Server. TokenRateLimit and TokenRateWindow default to five
// requests per minute.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TokenRateLimit <= 0 {
		opts.TokenRateLimit = 5
	}
	if opts.TokenRateWindow <= 0 {
		opts.TokenRateWindow = time.Minute
	}
	return &Server{
		vig:         opts.Vigilance,
		tokens:      opts.Tokens,
		staticToken: opts.StaticToken,
		limiter:     newRateLimiter(opts.TokenRateLimit, opts.TokenRateWindow, time.Now),
		logger:      opts.Logger,
		keepalive:   defaultKeepalive,
	}
}
