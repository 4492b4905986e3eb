package store

import (
	"context"
	"os"
	"testing"
	"time"

	"doodle-chain/internal/config"
	"doodle-chain/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Runs the store lifecycle against a real Postgres. Needs Docker, so it only
// runs with DOODLE_PG_TESTS=1.
func TestDBStorePostgres(t *testing.T) {
	if os.Getenv("DOODLE_PG_TESTS") != "1" {
		t.Skip("set DOODLE_PG_TESTS=1 to run postgres integration tests")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("doodle"),
		postgres.WithUsername("doodle"),
		postgres.WithPassword("doodle"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DatabaseURL = dsn
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	st := NewDBStore(conn)
	t.Run("doodles", func(t *testing.T) { runDoodleLifecycle(t, st) })
	t.Run("games", func(t *testing.T) { runGameLifecycle(t, st) })
}
