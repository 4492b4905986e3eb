package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"doodle-chain/internal/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return NewDBStore(conn)
}

func storeBackends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": newSQLiteStore,
	}
}

func TestStoreDoodleLifecycle(t *testing.T) {
	for name, newStore := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runDoodleLifecycle(t, newStore(t))
		})
	}
}

func TestStoreGameLifecycle(t *testing.T) {
	for name, newStore := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runGameLifecycle(t, newStore(t))
		})
	}
}

func runDoodleLifecycle(t *testing.T, st Store) {
	ctx := context.Background()

	root := &Doodle{Image: []byte{1, 2, 3}, Artist: "ada", Root: RootSentinel, TailLength: 1}
	require.NoError(t, st.CreateDoodle(ctx, root))
	require.NotEmpty(t, root.ID)

	child := &Doodle{Image: []byte{4}, Artist: "bob", Parent: root.ID, Root: root.ID, TailLength: 2, InGame: true}
	require.NoError(t, st.CreateDoodle(ctx, child))

	fetched, err := st.FetchDoodle(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, fetched.Image)
	require.False(t, fetched.HasParent())
	require.False(t, fetched.RootResolved())

	unresolved, err := st.QueryDoodles(ctx, DoodleQuery{Root: RootSentinel})
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	require.Equal(t, root.ID, unresolved[0].ID)

	fetched.Root = fetched.ID
	require.NoError(t, st.UpdateDoodle(ctx, fetched))

	chain, err := st.QueryDoodles(ctx, DoodleQuery{Root: root.ID})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, 1, chain[0].TailLength)
	require.Equal(t, 2, chain[1].TailLength)
	require.Equal(t, root.ID, chain[1].Parent)

	inGame := true
	games, err := st.QueryDoodles(ctx, DoodleQuery{InGame: &inGame})
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, child.ID, games[0].ID)

	children, err := st.QueryDoodles(ctx, DoodleQuery{Parent: root.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)

	require.NoError(t, st.DeleteDoodle(ctx, child.ID))
	_, err = st.FetchDoodle(ctx, child.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, st.DeleteDoodle(ctx, child.ID), ErrNotFound)
	require.ErrorIs(t, st.UpdateDoodle(ctx, Doodle{ID: "missing", Root: "missing", TailLength: 1}), ErrNotFound)
}

func runGameLifecycle(t *testing.T, st Store) {
	ctx := context.Background()

	game := &Game{GameCode: "ABC234", Creator: "ada", Players: []string{"ada"}, TimeLimit: 60}
	require.NoError(t, st.CreateGame(ctx, game))
	require.NotEmpty(t, game.ID)

	dup := &Game{GameCode: "ABC234", Creator: "bob", Players: []string{"bob"}, TimeLimit: 60}
	require.ErrorIs(t, st.CreateGame(ctx, dup), ErrConflict)

	found, err := st.FindGameByCode(ctx, "abc234")
	require.NoError(t, err)
	require.Equal(t, game.ID, found.ID)

	found.Players = append(found.Players, "bob")
	found.Round = RoundKilled
	require.NoError(t, st.UpdateGame(ctx, found))

	fetched, err := st.FetchGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"ada", "bob"}, fetched.Players)
	require.Equal(t, RoundKilled, fetched.Round)

	other := &Game{GameCode: "OTH567", Creator: "cy", Players: []string{"cy"}, TimeLimit: 60}
	require.NoError(t, st.CreateGame(ctx, other))
	recoded := fetched.Clone()
	recoded.GameCode = "OTH567"
	require.NoError(t, st.UpdateGame(ctx, recoded))
	kept, err := st.FetchGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, "ABC234", kept.GameCode)
	byCode, err := st.FindGameByCode(ctx, "OTH567")
	require.NoError(t, err)
	require.Equal(t, other.ID, byCode.ID)

	fetched.Players = nil
	require.NoError(t, st.UpdateGame(ctx, fetched))
	emptied, err := st.FetchGame(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, emptied.Players)
	require.Empty(t, emptied.Players)

	require.NoError(t, st.DeleteGame(ctx, game.ID))
	_, err = st.FetchGame(ctx, game.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = st.FindGameByCode(ctx, "ABC234")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, st.UpdateGame(ctx, fetched), ErrNotFound)
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	game := &Game{GameCode: "XYZ789", Creator: "ada", Players: []string{"ada"}, TimeLimit: 60}
	require.NoError(t, st.CreateGame(ctx, game))

	first, err := st.FetchGame(ctx, game.ID)
	require.NoError(t, err)
	first.Players[0] = "mallory"

	second, err := st.FetchGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"ada"}, second.Players)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().FetchGame(ctx, "any")
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifyDBError(t *testing.T) {
	require.ErrorIs(t, classifyDBError("fetch", gorm.ErrRecordNotFound), ErrNotFound)
	require.ErrorIs(t, classifyDBError("create", gorm.ErrDuplicatedKey), ErrConflict)
	require.ErrorIs(t, classifyDBError("create", errors.New("UNIQUE constraint failed: games.game_code")), ErrConflict)
	require.ErrorIs(t, classifyDBError("fetch", context.Canceled), context.Canceled)

	err := classifyDBError("update game", errors.New("connection reset"))
	require.True(t, IsTransient(err))
	require.Contains(t, err.Error(), "update game")
	require.False(t, IsTransient(ErrNotFound))
}
