package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// IntervalScheduler runs a job immediately and then every interval.
type IntervalScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler ticking every interval. A
// non-positive interval falls back to once a day.
func NewIntervalScheduler(interval time.Duration, logger *slog.Logger) *IntervalScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntervalScheduler{interval: interval, logger: logger}
}

// Start launches the ticking goroutine. Calling Start twice is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run(job, time.Now())
		for {
			select {
			case t := <-ticker.C:
				s.run(job, t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

func (s *IntervalScheduler) run(job func(time.Time), trigger time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", "panic", r)
		}
	}()
	job(trigger)
}

// Stop halts the ticker goroutine and waits for a running job to return or
// for ctx to expire.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
