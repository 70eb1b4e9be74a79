package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/potdraw/potdraw/cmd/potdraw/shared"
	"github.com/potdraw/potdraw/internal/ledger"
	"github.com/potdraw/potdraw/internal/randutil"
	"github.com/potdraw/potdraw/internal/room"
	"github.com/potdraw/potdraw/internal/server"
	"github.com/potdraw/potdraw/internal/settlement"
	"github.com/potdraw/potdraw/internal/store"
)

// sweepInterval is how often the retention sweeper runs in-process.
const sweepInterval = time.Hour

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"default='potdraw.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for winner draws (optional)'"`
	DBURL  string `kong:"name='db-url',env='POTDRAW_DB_URL',help='Postgres DSN for accounts and settlement records; in-memory store when unset'"`
}

func (c *ServerCmd) Run() error {
	// Configure logging
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !c.Debug {
		if lvl, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
			logger.SetLevel(lvl)
		}
	}

	// Setup RNG and seed
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	}
	rng := randutil.New(seed)

	// Setup graceful shutdown
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	// Stores: postgres when a DSN is configured, in-memory otherwise
	var (
		accounts    store.Accounts
		settlements store.Settlements
	)
	if c.DBURL != "" {
		pg, err := store.Connect(ctx, c.DBURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		accounts, settlements = pg, pg
		logger.Info("Using postgres store")
	} else {
		mem := store.NewMemory()
		accounts, settlements = mem, mem
		logger.Warn("No POTDRAW_DB_URL set, accounts and settlement records are in-memory only")
	}

	clock := quartz.NewReal()
	coordinator := settlement.NewCoordinator(
		ledger.NewDev(logger), settlements, clock, cfg.Game.Retention(), logger)
	selector := room.NewSelector(rng)

	srv := server.NewServer(cfg.GetServerAddress(), logger)
	bridge := server.NewRoomEventSubscriber(srv, logger)

	rooms := make([]*room.Room, 0, len(cfg.Rooms))
	for _, rc := range cfg.Rooms {
		stake, err := settlement.ParseAmount(rc.Stake)
		if err != nil {
			return err // unreachable after Validate
		}
		startingRound := int64(cfg.Game.StartingRoundBase)
		if cfg.Game.StartingRoundSpread > 0 {
			startingRound += int64(rng.IntN(cfg.Game.StartingRoundSpread))
		}
		rooms = append(rooms, room.New(room.Config{
			Tier:             rc.Stake,
			Stake:            stake,
			CountdownSeconds: cfg.Game.CountdownSeconds,
			MinReady:         cfg.Game.MinReady,
			PayoutFraction:   cfg.Game.PayoutFraction,
			GraceDelay:       cfg.Game.GraceDelay(),
			MaxParticipants:  cfg.Game.MaxParticipants,
			StartingRound:    startingRound,
		}, bridge, selector, coordinator, clock, logger))
	}

	registry := room.NewRegistry(rooms)
	bridge.SetRegistry(registry)
	srv.SetRoomService(server.NewRoomService(registry, accounts, logger))

	logger.Info("Starting potdraw server",
		"address", cfg.GetServerAddress(),
		"rooms", len(rooms),
		"countdown_seconds", cfg.Game.CountdownSeconds,
		"payout_fraction", cfg.Game.PayoutFraction,
		"grace_delay", cfg.Game.GraceDelay(),
		"retention", cfg.Game.Retention())

	sweeper := store.NewSweeper(settlements, clock, sweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}
