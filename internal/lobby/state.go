// Package lobby runs the waiting room of a multiplayer game. Every client
// polls the shared game record and reconciles its local view against it;
// there is no push and no server-side game logic, so every transition is
// derived from the record alone.
package lobby

import (
	"slices"

	"doodle-chain/internal/store"
)

type State int

const (
	Waiting State = iota
	Active
	Killed
	Left
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	case Killed:
		return "killed"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the waiting room for this client.
func (s State) Terminal() bool {
	return s != Waiting
}

// Snapshot is the lobby view handed to the UI after each cycle.
type Snapshot struct {
	GameID    string
	GameCode  string
	Creator   string
	Players   []string
	Round     int
	TimeLimit int
	IsCreator bool
	// Starting is set on the host between a successful start and the poll
	// that observes the new round.
	Starting bool
}

func snapshotOf(game store.Game, self string) Snapshot {
	return Snapshot{
		GameID:    game.ID,
		GameCode:  game.GameCode,
		Creator:   game.Creator,
		Players:   slices.Clone(game.Players),
		Round:     game.Round,
		TimeLimit: game.TimeLimit,
		IsCreator: game.Creator == self,
	}
}

// Decision is the outcome of reconciling one fetched record. Write, when
// set, is the record to persist; Delete means the record should be removed
// instead because nobody is left in it.
type Decision struct {
	Next     State
	Write    *store.Game
	Delete   bool
	Snapshot Snapshot
}

// Reconcile decides what a client whose user is self does with a freshly
// fetched game record.
func Reconcile(game store.Game, self string) Decision {
	d := Decision{Snapshot: snapshotOf(game, self)}
	switch {
	case game.Round > store.RoundWaiting:
		d.Next = Active
	case game.Round <= store.RoundKilled:
		d.Next = Killed
		remaining := withoutPlayer(game.Players, self)
		if len(remaining) != len(game.Players) {
			updated := game.Clone()
			updated.Players = remaining
			d.Write = &updated
		}
		d.Delete = len(remaining) == 0
	default:
		d.Next = Waiting
	}
	return d
}

// PlanLeave returns the record after self leaves. A creator leaving kills the
// game in the same write.
func PlanLeave(game store.Game, self string) store.Game {
	updated := game.Clone()
	updated.Players = withoutPlayer(game.Players, self)
	if game.Creator == self {
		updated.Round = store.RoundKilled
	}
	return updated
}

func withoutPlayer(players []string, user string) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		if p != user {
			out = append(out, p)
		}
	}
	return out
}
