package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter admits at most limit requests per caller in each fixed
// window. A caller's window opens with its first request; the bucket it
// gets refills one token per window, so within the window only the
// initial burst can be spent.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	callers   map[string]*callerWindow
	lastSweep time.Time
}

type callerWindow struct {
	start   time.Time
	limiter *rate.Limiter
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limit:     limit,
		window:    window,
		now:       now,
		callers:   make(map[string]*callerWindow),
		lastSweep: now(),
	}
}

// allow consumes one request for key. When refused it returns the time
// left until the caller's window closes.
func (l *rateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	w, ok := l.callers[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &callerWindow{
			start:   now,
			limiter: rate.NewLimiter(rate.Every(l.window), l.limit),
		}
		l.callers[key] = w
	}
	if !w.limiter.AllowN(now, 1) {
		return false, w.start.Add(l.window).Sub(now)
	}
	return true, 0
}

// sweepLocked drops callers whose window has closed.
func (l *rateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, w := range l.callers {
		if now.Sub(w.start) >= l.window {
			delete(l.callers, key)
		}
	}
	l.lastSweep = now
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
