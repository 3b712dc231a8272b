// Package vigilance owns the shared vigilance state, the flows that mutate
// it and the bus that broadcasts every change to stream subscribers.
//
// All mutations go through one mutex. A publish holds that mutex across
// mutate, fan-out and persist, so payloads leave in the order the state
// changed and a sink attached mid-publish never sees that publish.
package vigilance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/config"
	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/alfredjeanlab/praevisio/internal/model"
)

// ErrEmptyMessage is returned by EmitEvent for a blank message.
var ErrEmptyMessage = errors.New("event message is required")

// Persister stores full-state snapshots.
type Persister interface {
	Save(state model.State) error
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	// Initial is the state to start from, typically a loaded snapshot.
	// Nil means model.Default().
	Initial    *model.State
	Persister  Persister
	Publisher  events.Publisher
	Tuning     config.Tuning
	EventLimit int
	Rand       *rand.Rand
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Service is the single owner of the vigilance state.
type Service struct {
	bus     *Bus
	persist Persister
	pub     events.Publisher
	tuning  config.Tuning
	limit   int
	now     func() time.Time
	logger  *slog.Logger
	sched   *Scheduler

	mu    sync.Mutex
	state model.State
	rng   *rand.Rand // guarded by mu
}

// NewService creates a Service with its flows stopped.
func NewService(opts Options) *Service {
	if opts.EventLimit <= 0 {
		opts.EventLimit = model.DefaultEventLimit
	}
	if opts.Tuning == (config.Tuning{}) {
		opts.Tuning = config.DefaultTuning()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}

	state := model.Default()
	if opts.Initial != nil {
		state = opts.Initial.Clone()
	}
	state.Normalize(opts.EventLimit)

	s := &Service{
		bus:     NewBus(opts.Logger),
		persist: opts.Persister,
		pub:     opts.Publisher,
		tuning:  opts.Tuning,
		limit:   opts.EventLimit,
		now:     opts.Clock,
		logger:  opts.Logger,
		state:   state,
		rng:     opts.Rand,
	}
	s.sched = NewScheduler(opts.Logger,
		Task{Name: model.FlowPreservation, Period: opts.Tuning.Preservation.Period.Duration, Run: s.tickPreservation},
		Task{Name: model.FlowKnowledge, Period: opts.Tuning.Knowledge.Period.Duration, Run: s.tickKnowledge},
		Task{Name: model.FlowProphecy, Period: opts.Tuning.Prophecy.Period.Duration, Run: s.tickProphecy},
	)
	globalRiskGauge.Set(state.Indices.GlobalRisk)
	return s
}

// Bus exposes the subscriber registry.
func (s *Service) Bus() *Bus {
	return s.bus
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Report renders the current state as Markdown.
func (s *Service) Report() string {
	return model.RenderReport(s.Snapshot(), s.now())
}

// EmitEvent records message in the event log and broadcasts it.
func (s *Service) EmitEvent(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ctx, events.EventUpdate, message)
	return nil
}

// Attach sends the current state to sink as an init payload and then
// registers it on the bus. The returned detach function unregisters it and
// is safe to call more than once.
func (s *Service) Attach(sink Sink) (id string, detach func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.encodeLocked(events.EventInit, "")
	if err != nil {
		return "", nil, err
	}
	if err := sink.Send(payload); err != nil {
		return "", nil, fmt.Errorf("sending init payload: %w", err)
	}
	id, err = s.bus.Subscribe(sink)
	if err != nil {
		return "", nil, err
	}
	var once sync.Once
	return id, func() { once.Do(func() { s.bus.Unsubscribe(id) }) }, nil
}

// Start begins the periodic flows, restarting them if already running.
func (s *Service) Start() {
	s.sched.Start()
	s.mirror(events.TopicFlowsStarted, events.FlowsToggled{Running: true})
}

// Stop halts the periodic flows and waits for in-flight ticks.
func (s *Service) Stop() {
	if s.sched.Stop() {
		s.mirror(events.TopicFlowsStopped, events.FlowsToggled{Running: false})
	}
}

// Running reports whether the flows are scheduled.
func (s *Service) Running() bool {
	return s.sched.Running()
}

// Clear stops the flows, resets the state to defaults, persists it and
// broadcasts a cleared payload.
func (s *Service) Clear(ctx context.Context) {
	// The scheduler must be stopped before taking mu: an in-flight tick
	// holds mu and Stop waits for it.
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.Default()
	s.state.Normalize(s.limit)
	globalRiskGauge.Set(s.state.Indices.GlobalRisk)
	s.broadcastLocked(ctx, events.EventCleared, "")
	s.logger.Info("vigilance state cleared")
}

// Close stops the flows. Publisher and persister are owned by the caller.
func (s *Service) Close() {
	s.Stop()
}

// publishLocked prepends message to the event log and broadcasts the
// resulting state.
func (s *Service) publishLocked(ctx context.Context, event, message string) {
	s.state.PrependEvent(s.now(), message, s.limit)
	s.broadcastLocked(ctx, event, message)
}

// broadcastLocked fans the current state out to subscribers, persists it
// and mirrors it to the external publisher.
func (s *Service) broadcastLocked(ctx context.Context, event, message string) {
	payload, err := s.encodeLocked(event, message)
	if err != nil {
		s.logger.Error("encoding vigilance payload", "event", event, "error", err)
		return
	}
	eventsPublished.WithLabelValues(event).Inc()
	s.bus.Publish(payload)
	s.saveLocked()
	if err := s.pub.Publish(ctx, events.TopicFor(event), payload); err != nil {
		s.logger.Warn("mirroring vigilance event failed", "event", event, "error", err)
	}
}

func (s *Service) encodeLocked(event, message string) ([]byte, error) {
	return json.Marshal(events.Vigilance{Event: event, Message: message, State: s.state})
}

// saveLocked persists the state. Failures are logged and otherwise ignored.
func (s *Service) saveLocked() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.state); err != nil {
		persistFailures.Inc()
		s.logger.Warn("persisting vigilance snapshot failed", "error", err)
	}
}

func (s *Service) mirror(topic string, event any) {
	if err := s.pub.Publish(context.Background(), topic, event); err != nil {
		s.logger.Warn("mirroring flow toggle failed", "topic", topic, "error", err)
	}
}
