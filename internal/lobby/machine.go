package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"doodle-chain/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	msgFetchFailed  = "Could not refresh the game. Retrying."
	msgUpdateFailed = "Could not update the game. Retrying."
	msgEndedByHost  = "The host ended the game."
)

var (
	ErrNotCreator       = errors.New("only the game creator can do that")
	ErrNotWaiting       = errors.New("game is no longer waiting for players")
	ErrInvalidTimeLimit = errors.New("time limit must be one of 30, 60, 90 or 120 seconds")
)

// Listener receives lobby updates. Calls are made after the machine has
// released its locks, so a listener may call Start, Leave or SetTimeLimit.
type Listener interface {
	OnSnapshot(Snapshot)
	OnTransition(State)
	OnError(message string)
}

// Funcs adapts plain functions to a Listener. Nil fields are skipped.
type Funcs struct {
	Snapshot   func(Snapshot)
	Transition func(State)
	Error      func(string)
}

func (f Funcs) OnSnapshot(s Snapshot) {
	if f.Snapshot != nil {
		f.Snapshot(s)
	}
}

func (f Funcs) OnTransition(s State) {
	if f.Transition != nil {
		f.Transition(s)
	}
}

func (f Funcs) OnError(msg string) {
	if f.Error != nil {
		f.Error(msg)
	}
}

// events buffers listener calls made while the machine is locked.
type events []func(Listener)

func (e *events) snapshot(s Snapshot) {
	*e = append(*e, func(l Listener) { l.OnSnapshot(s) })
}

func (e *events) transition(s State) {
	*e = append(*e, func(l Listener) { l.OnTransition(s) })
}

func (e *events) failure(msg string) {
	*e = append(*e, func(l Listener) { l.OnError(msg) })
}

// Machine is one client's view of one game. Cycles and user actions are
// serialized; a cycle whose context is cancelled before it commits leaves
// the machine untouched.
type Machine struct {
	store    store.GameStore
	gameID   string
	self     string
	listener Listener

	ops sync.Mutex

	mu       sync.Mutex
	state    State
	snapshot Snapshot
	starting bool
	done     chan struct{}
}

func NewMachine(st store.GameStore, gameID, self string, listener Listener) *Machine {
	if listener == nil {
		listener = Funcs{}
	}
	return &Machine{
		store:    st,
		gameID:   gameID,
		self:     self,
		listener: listener,
		state:    Waiting,
		done:     make(chan struct{}),
	}
}

func (m *Machine) GameID() string { return m.gameID }
func (m *Machine) Self() string   { return m.self }

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot
	snap.Players = slices.Clone(snap.Players)
	return snap
}

// Done is closed once the machine reaches a terminal state.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

func (m *Machine) emit(ev events) {
	for _, call := range ev {
		call(m.listener)
	}
}

// Sync runs one reconciliation cycle and returns the resulting state.
// Failures are reported to the listener and leave the state unchanged so the
// next cycle retries.
func (m *Machine) Sync(ctx context.Context) (State, error) {
	var ev events
	state, err := m.sync(ctx, &ev)
	m.emit(ev)
	return state, err
}

func (m *Machine) sync(ctx context.Context, ev *events) (State, error) {
	m.ops.Lock()
	defer m.ops.Unlock()

	if state := m.State(); state.Terminal() {
		return state, nil
	}

	game, err := m.store.FetchGame(ctx, m.gameID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return m.State(), ctxErr
	}
	if errors.Is(err, store.ErrNotFound) {
		log.Info().Str("game_id", m.gameID).Str("user", m.self).Msg("game record gone")
		return m.transition(ctx, Killed, nil, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("game_id", m.gameID).Msg("lobby fetch failed")
		ev.failure(msgFetchFailed)
		return m.State(), err
	}

	decision := Reconcile(game, m.self)
	if decision.Next == Killed {
		if err := m.applyKill(ctx, decision); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return m.State(), ctxErr
			}
			log.Warn().Err(err).Str("game_id", m.gameID).Msg("leaving killed game failed")
			ev.failure(msgUpdateFailed)
			return m.State(), err
		}
	}

	if decision.Next == Waiting {
		m.mu.Lock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			state := m.state
			m.mu.Unlock()
			return state, ctxErr
		}
		m.snapshot = decision.Snapshot
		m.snapshot.Starting = m.starting
		snap := m.snapshot
		m.mu.Unlock()
		ev.snapshot(snap)
		return Waiting, nil
	}
	state, err := m.transition(ctx, decision.Next, &decision.Snapshot, ev)
	if err == nil && state == Killed {
		ev.failure(msgEndedByHost)
	}
	return state, err
}

func (m *Machine) applyKill(ctx context.Context, d Decision) error {
	if d.Delete {
		err := m.store.DeleteGame(ctx, m.gameID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		log.Info().Str("game_id", m.gameID).Msg("deleted empty game")
		return nil
	}
	if d.Write == nil {
		return nil
	}
	err := m.store.UpdateGame(ctx, *d.Write)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// transition commits a terminal state unless ctx was cancelled first.
func (m *Machine) transition(ctx context.Context, next State, snap *Snapshot, ev *events) (State, error) {
	m.mu.Lock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		state := m.state
		m.mu.Unlock()
		return state, ctxErr
	}
	if m.state.Terminal() {
		state := m.state
		m.mu.Unlock()
		return state, nil
	}
	m.state = next
	m.starting = false
	if snap != nil {
		m.snapshot = *snap
	}
	m.mu.Unlock()

	close(m.done)
	log.Info().Str("game_id", m.gameID).Str("user", m.self).Stringer("state", next).Msg("lobby transition")
	ev.transition(next)
	return next, nil
}

// Start moves the game to round one. Only the creator may start, and the
// local machine only becomes Active once a later cycle observes the round.
func (m *Machine) Start(ctx context.Context) error {
	var ev events
	err := m.start(ctx, &ev)
	m.emit(ev)
	return err
}

func (m *Machine) start(ctx context.Context, ev *events) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if m.State() != Waiting {
		return ErrNotWaiting
	}
	game, err := m.store.FetchGame(ctx, m.gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if game.Creator != m.self {
		return ErrNotCreator
	}
	if game.Round != store.RoundWaiting {
		return ErrNotWaiting
	}
	game.Round = 1
	if err := m.store.UpdateGame(ctx, game); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	log.Info().Str("game_id", m.gameID).Msg("game started")

	m.mu.Lock()
	m.starting = true
	m.snapshot.Starting = true
	snap := m.snapshot
	m.mu.Unlock()
	ev.snapshot(snap)
	return nil
}

// Leave removes self from the game and ends the machine. A creator leaving
// kills the game for everyone else; the last player out deletes the record.
func (m *Machine) Leave(ctx context.Context) error {
	var ev events
	err := m.leave(ctx, &ev)
	m.emit(ev)
	return err
}

func (m *Machine) leave(ctx context.Context, ev *events) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if m.State() == Left {
		return nil
	}
	game, err := m.store.FetchGame(ctx, m.gameID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m.forceLeft(ev)
		return nil
	case err != nil:
		return fmt.Errorf("load game: %w", err)
	}

	updated := PlanLeave(game, m.self)
	if len(updated.Players) == 0 {
		err = m.store.DeleteGame(ctx, m.gameID)
	} else {
		err = m.store.UpdateGame(ctx, updated)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("leave game: %w", err)
	}
	log.Info().
		Str("game_id", m.gameID).
		Str("user", m.self).
		Bool("killed", updated.Round == store.RoundKilled).
		Msg("left game")
	m.forceLeft(ev)
	return nil
}

// forceLeft records Left even after another terminal state.
func (m *Machine) forceLeft(ev *events) {
	m.mu.Lock()
	wasTerminal := m.state.Terminal()
	m.state = Left
	m.starting = false
	m.mu.Unlock()
	if !wasTerminal {
		close(m.done)
	}
	ev.transition(Left)
}

// SetTimeLimit changes the round length. Creator only, before the start.
func (m *Machine) SetTimeLimit(ctx context.Context, seconds int) error {
	var ev events
	err := m.setTimeLimit(ctx, seconds, &ev)
	m.emit(ev)
	return err
}

func (m *Machine) setTimeLimit(ctx context.Context, seconds int, ev *events) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if !ValidTimeLimit(seconds) {
		return ErrInvalidTimeLimit
	}
	if m.State() != Waiting {
		return ErrNotWaiting
	}
	game, err := m.store.FetchGame(ctx, m.gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if game.Creator != m.self {
		return ErrNotCreator
	}
	if game.Round != store.RoundWaiting {
		return ErrNotWaiting
	}
	game.TimeLimit = seconds
	if err := m.store.UpdateGame(ctx, game); err != nil {
		return fmt.Errorf("update time limit: %w", err)
	}

	m.mu.Lock()
	m.snapshot = snapshotOf(game, m.self)
	m.snapshot.Starting = m.starting
	snap := m.snapshot
	m.mu.Unlock()
	ev.snapshot(snap)
	return nil
}
