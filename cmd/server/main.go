package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"doodle-chain/internal/config"
	"doodle-chain/internal/db"
	"doodle-chain/internal/logger"
	"doodle-chain/internal/server"
	"doodle-chain/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(st, cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("doodle store listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("doodle store stopped")
}

// openStore picks the backend from DB_DRIVER. "memory" keeps everything in
// process; postgres without DATABASE_URL falls back to memory for local runs.
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.DBDriver == "memory" || (cfg.DBDriver == "postgres" && cfg.DatabaseURL == "") {
		log.Warn().Msg("using in-memory store; records are lost on restart")
		return store.NewMemoryStore(), nil
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, err
	}
	return store.NewDBStore(conn), nil
}
