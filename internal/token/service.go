// Package token issues and validates short-lived opaque stream tokens.
//
// Tokens are random hex strings registered in a Store together with their
// absolute deadline. The Service never keeps token state of its own; the
// Store owns the token -> deadline mapping. Validation fails closed: any
// store error is treated as an unknown token.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultTTL is the lifetime of a token when the caller does not pick one.
	DefaultTTL = 60 * time.Second

	// tokenBytes is the amount of random material per token.
	tokenBytes = 32

	defaultSweepInterval = 60 * time.Second
)

// Token is an issued credential.
type Token struct {
	Value     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
}

// Deadline returns ExpiresAt as a time.Time.
func (t Token) Deadline() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// Options configures a Service.
type Options struct {
	// Clock defaults to time.Now.
	Clock Clock
	// SweepInterval is how often expired entries are swept. Default: 60s.
	SweepInterval time.Duration
	// TestMode disables the background sweep so tests do not leak timers.
	TestMode bool
	Logger   *slog.Logger
}

// Service issues and validates tokens against a Store.
type Service struct {
	store    Store
	now      Clock
	interval time.Duration
	testMode bool
	logger   *slog.Logger

	mu        sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewService creates a Service. Call Start to begin periodic sweeping.
func NewService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		now:      opts.Clock,
		interval: opts.SweepInterval,
		testMode: opts.TestMode,
		logger:   opts.Logger,
	}
}

// Generate issues a new token valid for ttl. A non-positive ttl is legal and
// yields a token that is already expired.
func (s *Service) Generate(ctx context.Context, ttl time.Duration) (Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("generating token: %w", err)
	}
	value := hex.EncodeToString(buf)

	expiresAt := s.now().Add(ttl).UnixMilli()
	if err := s.store.Set(ctx, value, strconv.FormatInt(expiresAt, 10), ttl); err != nil {
		return Token{}, fmt.Errorf("storing token: %w", err)
	}
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// Validate reports whether value is a live token. Empty, unknown, expired and
// malformed tokens all return false. The stored deadline is re-checked even
// when the store expires keys on its own.
func (s *Service) Validate(ctx context.Context, value string) bool {
	if value == "" {
		return false
	}
	raw, ok, err := s.store.Get(ctx, value)
	if err != nil {
		s.logger.Warn("token validation failed closed", "error", err)
		return false
	}
	if !ok {
		return false
	}
	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return s.now().UnixMilli() < expiresAt
}

// Revoke removes a token before its deadline.
func (s *Service) Revoke(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	return s.store.Delete(ctx, value)
}

// Sweep runs one eager expiry pass.
func (s *Service) Sweep(ctx context.Context) {
	if err := s.store.SweepExpired(ctx); err != nil {
		s.logger.Warn("token sweep failed", "error", err)
	}
}

// Start launches the periodic sweep. Calling Start while running is a no-op,
// and in test mode nothing is scheduled.
func (s *Service) Start() {
	if s.testMode {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweepStop != nil {
		return
	}
	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})
	go s.sweepLoop(s.sweepStop, s.sweepDone)
	s.logger.Info("token sweep started", "interval", s.interval)
}

// Stop halts the periodic sweep and waits for it to exit. Safe to call
// repeatedly or without Start.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.sweepStop, s.sweepDone
	s.sweepStop, s.sweepDone = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Running reports whether the sweep goroutine is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepStop != nil
}

func (s *Service) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}
