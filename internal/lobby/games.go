package lobby

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"

	"doodle-chain/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeLimit = 60
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength       = 6
	maxCodeAttempts  = 8
)

var TimeLimits = []int{30, 60, 90, 120}

var (
	ErrMissingUser   = errors.New("user is required")
	ErrGameStarted   = errors.New("game has already started")
	ErrCodeExhausted = errors.New("could not allocate a free game code")
)

func ValidTimeLimit(seconds int) bool {
	return slices.Contains(TimeLimits, seconds)
}

func newGameCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CreateGame opens a new lobby with creator as its only player. A time limit
// of zero picks the default.
func CreateGame(ctx context.Context, st store.GameStore, creator string, timeLimit int) (store.Game, error) {
	return createGame(ctx, st, creator, timeLimit, newGameCode)
}

func createGame(ctx context.Context, st store.GameStore, creator string, timeLimit int, codes func() (string, error)) (store.Game, error) {
	if creator == "" {
		return store.Game{}, ErrMissingUser
	}
	if timeLimit == 0 {
		timeLimit = DefaultTimeLimit
	}
	if !ValidTimeLimit(timeLimit) {
		return store.Game{}, ErrInvalidTimeLimit
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := codes()
		if err != nil {
			return store.Game{}, fmt.Errorf("generate game code: %w", err)
		}
		game := store.Game{
			GameCode:  code,
			Creator:   creator,
			Players:   []string{creator},
			Round:     store.RoundWaiting,
			TimeLimit: timeLimit,
		}
		err = st.CreateGame(ctx, &game)
		if errors.Is(err, store.ErrConflict) {
			log.Debug().Str("game_code", code).Msg("game code taken, retrying")
			continue
		}
		if err != nil {
			return store.Game{}, fmt.Errorf("create game: %w", err)
		}
		log.Info().Str("game_id", game.ID).Str("game_code", code).Str("creator", creator).Msg("game created")
		return game, nil
	}
	return store.Game{}, ErrCodeExhausted
}

// JoinGame adds user to the waiting game with the given code. Joining a game
// the user is already in changes nothing.
func JoinGame(ctx context.Context, st store.GameStore, code, user string) (store.Game, error) {
	if user == "" {
		return store.Game{}, ErrMissingUser
	}
	game, err := st.FindGameByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return store.Game{}, fmt.Errorf("find game %q: %w", code, err)
	}
	if game.Round != store.RoundWaiting {
		return store.Game{}, ErrGameStarted
	}
	if game.HasPlayer(user) {
		return game, nil
	}
	game.Players = append(game.Players, user)
	if err := st.UpdateGame(ctx, game); err != nil {
		return store.Game{}, fmt.Errorf("join game: %w", err)
	}
	log.Info().Str("game_id", game.ID).Str("user", user).Int("players", len(game.Players)).Msg("player joined")
	return game, nil
}
