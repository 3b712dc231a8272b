package vigilance

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one periodic job. Run is called on every tick of Period and must
// return promptly once ctx is cancelled.
type Task struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context)
}

// Scheduler runs each Task on its own goroutine and ticker. Ticks of one
// task never overlap; ticks of different tasks may run concurrently.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tasks: tasks, logger: logger}
}

// Start launches every task. A running scheduler is stopped first, so
// calling Start twice never leaves duplicate tickers behind.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	for _, t := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.run(ctx, t)
		}(t)
	}
	s.cancel, s.wg = cancel, wg
	s.logger.Info("flow scheduler started", "tasks", len(s.tasks))
}

// Stop cancels every task and waits for in-flight ticks to return. It
// reports whether the scheduler was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopLocked() {
		return false
	}
	s.logger.Info("flow scheduler stopped")
	return true
}

// Running reports whether tasks are scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.wg.Wait()
	s.cancel, s.wg = nil, nil
	return true
}

func (s *Scheduler) run(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick racing with cancellation is skipped.
			if ctx.Err() != nil {
				return
			}
			t.Run(ctx)
		}
	}
}
