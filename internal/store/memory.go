package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. Records are copied on the way in and
// out, so a caller holding a Game or Doodle never shares it with another
// caller, matching the remote backends.
type MemoryStore struct {
	mu      sync.Mutex
	doodles map[string]Doodle
	games   map[string]Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		doodles: make(map[string]Doodle),
		games:   make(map[string]Game),
	}
}

func (s *MemoryStore) CreateDoodle(ctx context.Context, doodle *Doodle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doodle.ID = uuid.NewString()
	doodle.CreatedAt = timeNowUTC()
	s.doodles[doodle.ID] = doodle.Clone()
	return nil
}

func (s *MemoryStore) FetchDoodle(ctx context.Context, id string) (Doodle, error) {
	if err := ctx.Err(); err != nil {
		return Doodle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doodle, ok := s.doodles[id]
	if !ok {
		return Doodle{}, ErrNotFound
	}
	return doodle.Clone(), nil
}

func (s *MemoryStore) UpdateDoodle(ctx context.Context, doodle Doodle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.doodles[doodle.ID]
	if !ok {
		return ErrNotFound
	}
	doodle.CreatedAt = existing.CreatedAt
	s.doodles[doodle.ID] = doodle.Clone()
	return nil
}

func (s *MemoryStore) DeleteDoodle(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doodles[id]; !ok {
		return ErrNotFound
	}
	delete(s.doodles, id)
	return nil
}

func (s *MemoryStore) QueryDoodles(ctx context.Context, query DoodleQuery) ([]Doodle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Doodle, 0)
	for _, doodle := range s.doodles {
		if query.Matches(doodle) {
			list = append(list, doodle.Clone())
		}
	}
	sortDoodles(list)
	return list, nil
}

func (s *MemoryStore) CreateGame(ctx context.Context, game *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.games {
		if strings.EqualFold(existing.GameCode, game.GameCode) {
			return ErrConflict
		}
	}
	game.ID = uuid.NewString()
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *MemoryStore) FetchGame(ctx context.Context, id string) (Game, error) {
	if err := ctx.Err(); err != nil {
		return Game{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return game.Clone(), nil
}

func (s *MemoryStore) FindGameByCode(ctx context.Context, code string) (Game, error) {
	if err := ctx.Err(); err != nil {
		return Game{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, game := range s.games {
		if strings.EqualFold(game.GameCode, code) {
			return game.Clone(), nil
		}
	}
	return Game{}, ErrNotFound
}

func (s *MemoryStore) UpdateGame(ctx context.Context, game Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.games[game.ID]
	if !ok {
		return ErrNotFound
	}
	game.GameCode = existing.GameCode
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return ErrNotFound
	}
	delete(s.games, id)
	return nil
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
