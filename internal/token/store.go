package token

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStoreUnavailable wraps failures of a remote backing store.
var ErrStoreUnavailable = errors.New("token store unavailable")

// Clock returns the current time. Tests inject a controllable one.
type Clock func() time.Time

// Store is a key/value store with per-key expiry.
type Store interface {
	// Set stores value under key for ttl. A non-positive ttl stores an
	// entry that is already expired.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value for key. Expired and unknown keys report ok=false.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Delete removes key. Deleting an unknown key is not an error.
	Delete(ctx context.Context, key string) error
	// SweepExpired removes every expired entry. No-op for stores with
	// native TTL support.
	SweepExpired(ctx context.Context) error
}

type memoryEntry struct {
	value    string
	deadline time.Time
}

// MemoryStore is an in-process Store. Expiry is lazy on Get and eager on
// SweepExpired.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     Clock
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, deadline: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(e.deadline) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if !now.Before(e.deadline) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len returns the number of entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
