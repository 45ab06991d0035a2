package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickRunner executes one delivery pass for the given UTC hour.
type TickRunner interface {
	DeliverDue(ctx context.Context, hour int) (int, error)
}

// Scheduler drives a TickRunner on a fixed interval. Start and Stop are
// idempotent, and a failing or panicking tick never stops the loop.
type Scheduler struct {
	runner   TickRunner
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler ticking at interval.
func New(runner TickRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// SetClock overrides the reference clock (for testing). Call before Start.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start launches the tick loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Warn("scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info("scheduler started", "interval", s.interval)
}

// Stop halts the loop and waits for an in-flight tick to finish. Calling
// Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one delivery pass for the current UTC hour. Errors and
// panics are logged and contained so the next tick still happens.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panicked", "panic", r)
		}
	}()

	hour := s.now().UTC().Hour()
	delivered, err := s.runner.DeliverDue(ctx, hour)
	if err != nil {
		s.logger.Error("scheduler tick failed", "hour", hour, "error", err)
		return
	}
	if delivered > 0 {
		s.logger.Info("scheduler tick delivered", "hour", hour, "count", delivered)
	}
}
