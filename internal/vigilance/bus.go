package vigilance

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/praevisio/internal/idgen"
)

var (
	// ErrSinkFull is returned by ChanSink.Send when the buffer is full.
	ErrSinkFull = errors.New("sink buffer full")
	// ErrSinkClosed is returned by ChanSink.Send after Close.
	ErrSinkClosed = errors.New("sink closed")
)

// sinkBufferSize is the per-subscriber backlog before payloads are dropped.
const sinkBufferSize = 64

// Sink is one delivery endpoint, typically an open stream connection.
// Send must not block.
type Sink interface {
	Send(payload []byte) error
	// Done is closed once the sink stops accepting payloads.
	Done() <-chan struct{}
}

// ChanSink is a Sink backed by a buffered channel. A slow reader loses
// payloads rather than stalling the publisher.
type ChanSink struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NewChanSink creates a sink with the default buffer size.
func NewChanSink() *ChanSink {
	return NewChanSinkSize(sinkBufferSize)
}

// NewChanSinkSize creates a sink holding up to size undelivered payloads.
func NewChanSinkSize(size int) *ChanSink {
	return &ChanSink{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (c *ChanSink) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrSinkClosed
	default:
	}
	select {
	case c.ch <- payload:
		return nil
	default:
		return ErrSinkFull
	}
}

func (c *ChanSink) Done() <-chan struct{} {
	return c.done
}

// C returns the channel payloads are delivered on. It is never closed;
// readers select on Done as well.
func (c *ChanSink) C() <-chan []byte {
	return c.ch
}

// Close stops the sink. Safe to call more than once.
func (c *ChanSink) Close() {
	c.once.Do(func() { close(c.done) })
}

// Bus fans payloads out to every registered sink.
type Bus struct {
	mu     sync.RWMutex
	sinks  map[string]Sink
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		sinks:  make(map[string]Sink),
		logger: logger,
	}
}

// Subscribe registers sink and returns its id.
func (b *Bus) Subscribe(sink Sink) (string, error) {
	id, err := idgen.Subscriber()
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.sinks[id] = sink
	n := len(b.sinks)
	subscribersGauge.Set(float64(n))
	b.mu.Unlock()

	b.logger.Debug("subscriber attached", "id", id, "subscribers", n)
	return id, nil
}

// Unsubscribe removes a sink. Unknown ids are ignored. Once Unsubscribe
// returns, the sink receives nothing further.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	_, ok := b.sinks[id]
	delete(b.sinks, id)
	n := len(b.sinks)
	if ok {
		subscribersGauge.Set(float64(n))
	}
	b.mu.Unlock()

	if ok {
		b.logger.Debug("subscriber detached", "id", id, "subscribers", n)
	}
}

// Publish delivers payload to every sink and returns the number of
// successful deliveries. A failing sink is logged and skipped; it stays
// registered until its owner unsubscribes.
func (b *Bus) Publish(payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, sink := range b.sinks {
		if err := sink.Send(payload); err != nil {
			deliveriesDropped.WithLabelValues(dropReason(err)).Inc()
			b.logger.Warn("dropping payload for subscriber", "id", id, "error", err)
			continue
		}
		delivered++
	}
	deliveriesTotal.Add(float64(delivered))
	return delivered
}

// Len returns the number of registered sinks.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrSinkFull):
		return "full"
	case errors.Is(err, ErrSinkClosed):
		return "closed"
	}
	return "error"
}
