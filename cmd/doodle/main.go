package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doodle-chain/internal/chain"
	"doodle-chain/internal/config"
	"doodle-chain/internal/lobby"
	"doodle-chain/internal/logger"
	"doodle-chain/internal/store"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

const usage = `usage: doodle <command> [flags]

commands:
  draw     save a doodle, optionally on top of a parent
  resolve  link every doodle still waiting for its root
  lineage  print a doodle and its ancestors
  host     create a game and wait in its lobby
  join     join a game by code and wait in its lobby`

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewRemoteStore(cfg.StoreURL, time.Duration(cfg.StoreTimeoutSeconds)*time.Second)
	app := &app{cfg: cfg, store: st}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "draw":
		err = app.draw(ctx, args)
	case "resolve":
		err = app.resolve(ctx)
	case "lineage":
		err = app.lineage(ctx, args)
	case "host":
		err = app.host(ctx, args)
	case "join":
		err = app.join(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

type app struct {
	cfg   config.Config
	store store.Store
}

func (a *app) manager() *chain.Manager {
	m := chain.NewManager(a.store, func(msg string) { log.Warn().Msg(msg) })
	m.Composite = chain.CompositeOptions{MaxWidth: a.cfg.ImageMaxWidth, Quality: a.cfg.ImageQuality}
	return m
}

func (a *app) draw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	artist := fs.String("artist", "", "artist user reference")
	imagePath := fs.String("image", "", "path to a PNG or JPEG layer")
	parent := fs.String("parent", "", "id of the doodle to draw on")
	inGame := fs.Bool("in-game", false, "mark a new chain as a game doodle")
	_ = fs.Parse(args)

	if *imagePath == "" {
		return fmt.Errorf("-image is required")
	}
	layer, err := os.ReadFile(*imagePath)
	if err != nil {
		return err
	}
	doodle, err := a.manager().Contribute(ctx, *parent, *artist, layer, *inGame)
	if err != nil {
		return err
	}
	fmt.Printf("doodle %s root=%s tail_length=%d\n", doodle.ID, doodle.Root, doodle.TailLength)
	return nil
}

func (a *app) resolve(ctx context.Context) error {
	count, err := a.manager().ResolveRoots(ctx)
	fmt.Printf("resolved %d doodles\n", count)
	return err
}

func (a *app) lineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ExitOnError)
	id := fs.String("id", "", "doodle id")
	_ = fs.Parse(args)

	path, err := a.manager().Lineage(ctx, *id)
	if err != nil {
		return err
	}
	for _, d := range path {
		fmt.Printf("%d\t%s\t%s\n", d.TailLength, d.ID, d.Artist)
	}
	return nil
}

func (a *app) host(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	user := fs.String("user", "", "your user reference")
	timeLimit := fs.Int("time-limit", a.cfg.DefaultTimeLimitSeconds, "round length in seconds (30, 60, 90, 120)")
	startAt := fs.Int("start-at", 0, "start once this many players are in (0 waits for Ctrl-C)")
	_ = fs.Parse(args)

	game, err := lobby.CreateGame(ctx, a.store, *user, *timeLimit)
	if err != nil {
		return err
	}
	fmt.Printf("game code %s\n", game.GameCode)
	return a.wait(ctx, game.ID, *user, *startAt)
}

func (a *app) join(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	user := fs.String("user", "", "your user reference")
	code := fs.String("code", "", "game code")
	_ = fs.Parse(args)

	game, err := lobby.JoinGame(ctx, a.store, *code, *user)
	if err != nil {
		return err
	}
	fmt.Printf("joined %s with %d players\n", game.GameCode, len(game.Players))
	return a.wait(ctx, game.ID, *user, 0)
}

// wait polls the lobby until it ends. Interrupting leaves the game.
func (a *app) wait(ctx context.Context, gameID, user string, startAt int) error {
	snapshots := make(chan lobby.Snapshot, 1)
	listener := lobby.Funcs{
		Snapshot: func(s lobby.Snapshot) {
			fmt.Printf("players %v time limit %ds\n", s.Players, s.TimeLimit)
			select {
			case snapshots <- s:
			default:
			}
		},
		Transition: func(s lobby.State) { fmt.Printf("lobby %s\n", s) },
		Error:      func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	}
	machine := lobby.NewMachine(a.store, gameID, user, listener)
	session := lobby.NewSession(machine, clock.New(), time.Duration(a.cfg.PollIntervalMillis)*time.Millisecond)
	defer session.Close()
	session.Resume(ctx)

	for {
		select {
		case <-machine.Done():
			return nil
		case s := <-snapshots:
			if startAt > 0 && s.IsCreator && !s.Starting && len(s.Players) >= startAt {
				if err := session.Start(ctx); err != nil {
					log.Warn().Err(err).Msg("start failed")
				}
			}
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.StoreTimeoutSeconds)*time.Second)
			defer cancel()
			return session.Leave(leaveCtx)
		}
	}
}
