package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"ResearchRadar/internal/ports"
)

// IntervalScheduler runs a job immediately and then every interval. Runs never
// overlap: ticks that arrive while a job is running are dropped, so a slow run
// is followed by the next regular tick rather than a catch-up run.
type IntervalScheduler struct {
	interval time.Duration
	loc      *time.Location

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler; job times are reported in loc.
func NewIntervalScheduler(interval time.Duration, loc *time.Location) *IntervalScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &IntervalScheduler{interval: interval, loc: loc}
}

// Start begins ticking. Calling Start twice without Stop is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.interval <= 0 {
		return errors.New("schedule interval must be positive")
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
		job(time.Now().In(s.loc))
		drain(ticker.C)
		for {
			select {
			case t := <-ticker.C:
				job(t.In(s.loc))
				drain(ticker.C)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

func drain(c <-chan time.Time) {
	select {
	case <-c:
	default:
	}
}

// Stop halts the ticker goroutine and waits for a running job to return, or
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

// Done is closed once the loop exits; nil when not started.
func (s *IntervalScheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
