// Package store is the record store the doodle and lobby flows talk to. Every
// write is an unconditional overwrite of one record: there are no transactions
// and no cross-record atomicity, so callers coordinate through idempotent
// read-modify-write cycles.
package store

import (
	"context"
	"slices"
	"time"
)

// RootSentinel marks a parentless doodle whose root has not been set to its
// own id yet.
const RootSentinel = "setRoot"

const (
	RoundWaiting = 0
	RoundKilled  = -1
)

type Doodle struct {
	ID         string
	Image      []byte
	Artist     string
	Parent     string
	Root       string
	TailLength int
	InGame     bool
	CreatedAt  time.Time
}

func (d Doodle) HasParent() bool {
	return d.Parent != ""
}

func (d Doodle) RootResolved() bool {
	return d.Root != "" && d.Root != RootSentinel
}

func (d Doodle) Clone() Doodle {
	d.Image = slices.Clone(d.Image)
	return d
}

type Game struct {
	ID        string
	GameCode  string
	Creator   string
	Players   []string
	Round     int
	TimeLimit int
}

func (g Game) HasPlayer(user string) bool {
	return slices.Contains(g.Players, user)
}

func (g Game) Clone() Game {
	g.Players = slices.Clone(g.Players)
	if g.Players == nil {
		g.Players = []string{}
	}
	return g
}

// DoodleQuery holds equality filters. Empty strings and a nil InGame match
// everything.
type DoodleQuery struct {
	Root   string
	Parent string
	Artist string
	InGame *bool
}

func (q DoodleQuery) Matches(d Doodle) bool {
	if q.Root != "" && d.Root != q.Root {
		return false
	}
	if q.Parent != "" && d.Parent != q.Parent {
		return false
	}
	if q.Artist != "" && d.Artist != q.Artist {
		return false
	}
	if q.InGame != nil && d.InGame != *q.InGame {
		return false
	}
	return true
}

type DoodleStore interface {
	CreateDoodle(ctx context.Context, doodle *Doodle) error
	FetchDoodle(ctx context.Context, id string) (Doodle, error)
	UpdateDoodle(ctx context.Context, doodle Doodle) error
	DeleteDoodle(ctx context.Context, id string) error
	QueryDoodles(ctx context.Context, query DoodleQuery) ([]Doodle, error)
}

// GameStore keeps game records. A game's code is set by CreateGame and
// UpdateGame leaves it unchanged.
type GameStore interface {
	CreateGame(ctx context.Context, game *Game) error
	FetchGame(ctx context.Context, id string) (Game, error)
	FindGameByCode(ctx context.Context, code string) (Game, error)
	UpdateGame(ctx context.Context, game Game) error
	DeleteGame(ctx context.Context, id string) error
}

type Store interface {
	DoodleStore
	GameStore
}

// sortDoodles orders chain members by depth, then id, so query results are
// stable across backends.
func sortDoodles(doodles []Doodle) {
	slices.SortFunc(doodles, func(a, b Doodle) int {
		if a.TailLength != b.TailLength {
			return a.TailLength - b.TailLength
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
