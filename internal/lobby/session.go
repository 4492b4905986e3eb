package lobby

import (
	"context"
	"sync"
	"time"

	"doodle-chain/internal/poll"

	"github.com/benbjohnson/clock"
)

// Session drives a Machine with a poll scheduler. Polling runs only while
// the session is resumed and stops for good on any terminal state.
type Session struct {
	machine *Machine
	sched   *poll.Scheduler

	mu        sync.Mutex
	resumeCtx context.Context
}

func NewSession(m *Machine, clk clock.Clock, interval time.Duration) *Session {
	s := &Session{machine: m}
	s.sched = poll.NewScheduler(clk, interval, s.cycle)
	return s
}

func (s *Session) cycle(ctx context.Context) bool {
	state, _ := s.machine.Sync(ctx)
	return state.Terminal()
}

func (s *Session) Machine() *Machine { return s.machine }

func (s *Session) Polling() bool { return s.sched.Running() }

// Resume starts polling, as when the lobby comes to the foreground.
func (s *Session) Resume(ctx context.Context) {
	if s.machine.State().Terminal() {
		return
	}
	s.mu.Lock()
	s.resumeCtx = ctx
	s.mu.Unlock()
	s.sched.Start(ctx)
}

// Pause stops polling and abandons any cycle in flight.
func (s *Session) Pause() {
	s.sched.Stop()
}

func (s *Session) Start(ctx context.Context) error {
	return s.machine.Start(ctx)
}

func (s *Session) SetTimeLimit(ctx context.Context, seconds int) error {
	return s.machine.SetTimeLimit(ctx, seconds)
}

// Leave stops polling and leaves the game. If the leave fails, polling picks
// up again where it was.
func (s *Session) Leave(ctx context.Context) error {
	wasPolling := s.sched.Running()
	s.sched.Stop()
	if err := s.machine.Leave(ctx); err != nil {
		if wasPolling {
			s.mu.Lock()
			resumeCtx := s.resumeCtx
			s.mu.Unlock()
			if resumeCtx != nil {
				s.Resume(resumeCtx)
			}
		}
		return err
	}
	return nil
}

func (s *Session) Close() {
	s.sched.Stop()
}
