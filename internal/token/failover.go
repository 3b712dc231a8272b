package token

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

var storeFallbacks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "praevisio",
		Subsystem: "token",
		Name:      "store_fallbacks_total",
		Help:      "Number of times the remote token store was abandoned for the in-process store.",
	},
)

func init() {
	_ = prometheus.Register(storeFallbacks)
}

// FailoverStore serves from a primary store until its first failure, then
// switches to the fallback for the rest of the process lifetime. Losing the
// remote store must never make authentication unavailable, so the primary
// is not retried.
type FailoverStore struct {
	primary  Store
	fallback Store
	failed   atomic.Bool
	logger   *slog.Logger
}

// NewFailoverStore wraps primary with an in-process fallback.
func NewFailoverStore(primary, fallback Store, logger *slog.Logger) *FailoverStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

// FailedOver reports whether the fallback is in use.
func (f *FailoverStore) FailedOver() bool {
	return f.failed.Load()
}

func (f *FailoverStore) trip(ctx context.Context, op string, err error) bool {
	// A cancelled caller is not evidence that the store is down.
	if ctx.Err() != nil {
		return false
	}
	if f.failed.CompareAndSwap(false, true) {
		storeFallbacks.Inc()
		f.logger.Warn("token store unavailable, falling back to in-process store",
			"op", op, "error", err)
	}
	return true
}

func (f *FailoverStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !f.failed.Load() {
		err := f.primary.Set(ctx, key, value, ttl)
		if err == nil || !f.trip(ctx, "set", err) {
			return err
		}
	}
	return f.fallback.Set(ctx, key, value, ttl)
}

func (f *FailoverStore) Get(ctx context.Context, key string) (string, bool, error) {
	if !f.failed.Load() {
		v, ok, err := f.primary.Get(ctx, key)
		if err == nil || !f.trip(ctx, "get", err) {
			return v, ok, err
		}
	}
	return f.fallback.Get(ctx, key)
}

func (f *FailoverStore) Delete(ctx context.Context, key string) error {
	if !f.failed.Load() {
		err := f.primary.Delete(ctx, key)
		if err == nil || !f.trip(ctx, "delete", err) {
			return err
		}
	}
	return f.fallback.Delete(ctx, key)
}

// SweepExpired always sweeps the fallback; it holds entries only after a
// failover, and sweeping an empty map is free.
func (f *FailoverStore) SweepExpired(ctx context.Context) error {
	if !f.failed.Load() {
		if err := f.primary.SweepExpired(ctx); err != nil {
			f.trip(ctx, "sweep", err)
		}
	}
	return f.fallback.SweepExpired(ctx)
}

// NewStore resolves a StoreKind into a Store. For StoreRedis the remote
// store is pinged once; if it is unreachable the in-process store is used
// from the start. The returned close function releases remote connections.
func NewStore(ctx context.Context, kind config.StoreKind, redisURL string, now Clock, logger *slog.Logger) (Store, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	switch kind {
	case config.StoreMemory, "":
		return NewMemoryStore(now), noop, nil
	case config.StoreRedis:
		rs, err := NewRedisStore(redisURL)
		if err != nil {
			storeFallbacks.Inc()
			logger.Warn("redis token store misconfigured, using in-process store", "error", err)
			return NewMemoryStore(now), noop, nil
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			storeFallbacks.Inc()
			logger.Warn("redis token store unreachable at startup, using in-process store", "error", err)
			_ = rs.Close()
			return NewMemoryStore(now), noop, nil
		}
		logger.Info("token store: redis")
		return NewFailoverStore(rs, NewMemoryStore(now), logger), rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store kind %q", kind)
	}
}
