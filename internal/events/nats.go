package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// feedBuffer is how many mirrored payloads a slow watcher may fall behind
// before further payloads are dropped.
const feedBuffer = 64

// connect dials NATS with the options every praevisio connection shares:
// a client name, endless reconnects and logged connection changes.
func connect(url, name string, extra ...nats.Option) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("vigilance mirror disconnected", "conn", name, "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("vigilance mirror reconnected", "conn", name, "url", nc.ConnectedUrlRedacted())
		}),
	}
	nc, err := nats.Connect(url, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher mirrors vigilance broadcasts onto NATS subjects. The server
// connects to PRAEVISIO_NATS_URL when it is set.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, "praevisio-server", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends event on topic. A []byte event is an already encoded
// stream payload and goes out unchanged, so NATS watchers see exactly what
// SSE subscribers see.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodePayload(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

func encodePayload(event any) ([]byte, error) {
	if raw, ok := event.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", event, err)
	}
	return data, nil
}

// NATSSubscriber follows a server's vigilance mirror. It needs no stream
// credential, only access to the NATS server.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects with automatic reconnection. Extra options are
// applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, "praevisio-watch", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe returns a channel of raw payloads for topic, which may use NATS
// wildcards such as TopicAll. The cancel function unsubscribes and closes
// the channel; it is safe to call more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	f := newMirrorFeed(topic)
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) { f.deliver(msg.Data) })
	if err != nil {
		f.close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before the caller expects
	// payloads published on other connections.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		f.close()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	f.sub = sub
	return f.ch, f.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// mirrorFeed hands payloads from the NATS callback to a watcher without
// ever blocking the NATS client.
type mirrorFeed struct {
	topic   string
	ch      chan []byte
	sub     *nats.Subscription
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	dropped atomic.Int64
}

func newMirrorFeed(topic string) *mirrorFeed {
	return &mirrorFeed{topic: topic, ch: make(chan []byte, feedBuffer)}
}

func (f *mirrorFeed) deliver(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- data:
	default:
		f.dropped.Add(1)
	}
}

func (f *mirrorFeed) cancel() {
	f.once.Do(func() {
		if f.sub != nil {
			_ = f.sub.Unsubscribe()
		}
		f.close()
		if n := f.dropped.Load(); n > 0 {
			slog.Warn("watcher fell behind the vigilance mirror", "topic", f.topic, "dropped", n)
		}
	})
}

// close stops delivery, discards anything unread and closes the channel.
func (f *mirrorFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for {
		select {
		case <-f.ch:
		default:
			close(f.ch)
			return
		}
	}
}
