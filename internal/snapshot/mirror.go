package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/model"
)

// Destination is a remote copy of the snapshot (S3, git, etc.).
type Destination interface {
	// Write replaces the remote copy with data.
	Write(ctx context.Context, data []byte) error
}

// Source returns the state to mirror.
type Source func() model.State

// Mirror periodically pushes the current snapshot to one or more
// destinations. It is independent of the per-event FileStore writes.
type Mirror struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMirror creates a mirror that pushes source to the given destinations
// at the specified interval.
func NewMirror(source Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		source:       source,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic mirroring. It pushes once immediately, then on
// each tick.
func (m *Mirror) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
}

// Stop cancels the mirror, runs a final push so the remote copy matches
// the state at shutdown, and waits for it to finish.
func (m *Mirror) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.cancel = nil

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.PushOnce(ctx)
}

func (m *Mirror) run(ctx context.Context) {
	m.PushOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PushOnce(ctx)
		}
	}
}

// PushOnce writes the current snapshot to every destination. Failures are
// logged per destination.
func (m *Mirror) PushOnce(ctx context.Context) {
	data, err := Encode(m.source())
	if err != nil {
		m.logger.Error("snapshot mirror encode failed", "err", err)
		return
	}

	failed := 0
	for i, dest := range m.destinations {
		if err := dest.Write(ctx, data); err != nil {
			failed++
			m.logger.Error("snapshot mirror write failed", "destination", fmt.Sprintf("%d", i), "err", err)
		}
	}
	m.logger.Debug("snapshot mirrored", "destinations", len(m.destinations), "failed", failed, "bytes", len(data))
}
