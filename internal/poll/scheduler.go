// Package poll runs a task on a fixed delay. The next run is scheduled one
// interval after the previous run returns, so slow runs never overlap.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultInterval = 2 * time.Second

// Task runs one cycle. Returning true stops the scheduler.
type Task func(ctx context.Context) (done bool)

type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	task     Task

	mu      sync.Mutex
	running bool
	gen     uint64
	timer   *clock.Timer
	cancel  context.CancelFunc

	// onCycle runs after every completed cycle that was still current.
	onCycle func(done bool)
}

func NewScheduler(clk clock.Clock, interval time.Duration, task Task) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{clock: clk, interval: interval, task: task}
}

// Start schedules the first run one interval from now. Starting a running
// scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.gen++
	s.cancel = cancel
	s.scheduleLocked(runCtx, s.gen)
}

// Stop cancels the pending run and the context of a run in flight. A run
// that returns after Stop is ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) scheduleLocked(ctx context.Context, gen uint64) {
	s.timer = s.clock.AfterFunc(s.interval, func() {
		s.fire(ctx, gen)
	})
}

func (s *Scheduler) fire(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	done := s.task(ctx)

	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	if done || ctx.Err() != nil {
		s.stopLocked()
	} else {
		s.scheduleLocked(ctx, gen)
	}
	hook := s.onCycle
	s.mu.Unlock()

	if hook != nil {
		hook(done)
	}
}
