package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/burgerdrop/internal/audio"
	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/internal/server"
	"github.com/ajitpratap0/burgerdrop/internal/terminal"
	"github.com/ajitpratap0/burgerdrop/pkg/highscore"
	"github.com/ajitpratap0/burgerdrop/pkg/logger"
	"github.com/ajitpratap0/burgerdrop/pkg/metrics"
	"github.com/ajitpratap0/burgerdrop/pkg/observability"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

func newPlayCommand(a *app) *cobra.Command {
	var (
		debugAddr string
		level     string
		mute      bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		Long: `Play Burger Drop in the terminal. Click ingredients with the mouse in the
order shown on the second line. p pauses, r restarts, q quits.

Logs go to a file (logging.file, default in the temp dir) so they do not
corrupt the screen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), a, playOptions{debugAddr: debugAddr, level: level, mute: mute})
		},
	}
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "Serve debug endpoints and metrics on this address while playing")
	cmd.Flags().StringVar(&level, "level", "", "Starting quality level (high, medium, low, critical, auto)")
	cmd.Flags().BoolVar(&mute, "mute", false, "Disable sound")
	return cmd
}

type playOptions struct {
	debugAddr string
	level     string
	mute      bool
}

func runPlay(ctx context.Context, a *app, opts playOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(os.TempDir(), "burgerdrop.log")
	}
	if opts.level != "" {
		cfg.Performance.InitialLevel = opts.level
	}
	if opts.debugAddr != "" {
		cfg.Server.DebugAddr = opts.debugAddr
	}
	if opts.mute {
		cfg.Game.Sound = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, _, err = a.initLogger(ctx, cfg, "play")
	if err != nil {
		return err
	}
	sessionID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.SessionIDKey, sessionID)
	log := logger.WithContext(ctx)

	initial := performance.High
	if cfg.AutoLevel() {
		device := performance.DetectDevice(ctx)
		initial = device.InitialLevel()
		log.Info("device probed",
			zap.Int("logical_cpus", device.LogicalCPUs),
			zap.Uint64("total_memory", device.TotalMemory),
			zap.Stringer("initial_level", initial))
	}

	store, err := highscore.Open(ctx, cfg.HighScore, log)
	if err != nil {
		return err
	}
	defer store.Close()
	best, err := store.Get(ctx)
	if err != nil {
		log.Warn("high score unavailable", zap.Error(err))
	}

	provider, err := observability.NewProvider(cfg.TracingConfig(version))
	if err != nil {
		return err
	}
	defer shutdownProvider(provider, log)

	manager := pool.NewManager(pool.WithLogger(log))
	monitor := performance.NewMonitor(cfg.MonitorConfig(initial),
		performance.WithLogger(log),
		performance.WithQualityTable(cfg.QualityTable()))

	registry := prometheus.NewRegistry()
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(registry, cfg.Metrics.Namespace)
		registry.MustRegister(metrics.NewPoolCollector(cfg.Metrics.Namespace, manager))
		defer collector.Attach(monitor)()
	}

	ctx, session := observability.StartSession(ctx, provider.Tracer(), sessionID, "play")
	session.AttachMonitor(monitor)

	screen, err := terminal.OpenScreen()
	if err != nil {
		session.End(0, err)
		return err
	}
	finiScreen := sync.OnceFunc(screen.Fini)
	defer finiScreen()
	renderer := terminal.NewRenderer(screen, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	hooks := game.Hooks{
		Order: func(r game.OrderResult) {
			session.RecordOrder(r.Outcome, r.Ingredients, r.Points)
			if collector != nil {
				collector.ObserveOrder(r.Outcome)
			}
		},
		Score: func(score int) {
			if collector != nil {
				collector.SetScore(score)
			}
		},
		GameOver: func(r game.Result) {
			session.AddEvent("game.over")
			eg.Go(func() error {
				submitScore(context.WithoutCancel(ctx), store, r.Score, log)
				return nil
			})
		},
	}

	gameOpts := []game.Option{
		game.WithLogger(log),
		game.WithRenderer(renderer),
		game.WithHooks(hooks),
		game.WithBestScore(best),
	}
	if cfg.Game.Sound {
		player := audio.NewPlayer(cfg.Game.Volume, log)
		if err := player.Init(); err != nil {
			log.Warn("audio unavailable, playing muted", zap.Error(err))
		} else {
			defer player.Close()
			gameOpts = append(gameOpts, game.WithSound(player))
		}
	}

	g := game.New(cfg.Game, cfg.Pools, manager, monitor, gameOpts...)
	defer g.Close()

	input := make(chan game.Input, 16)
	go renderer.PollInput(ctx, input)

	eg.Go(func() error {
		defer cancel()
		return g.Run(ctx, input)
	})
	if cfg.Server.DebugAddr != "" {
		srvCfg := cfg.Server
		srvCfg.Addr = cfg.Server.DebugAddr
		srvCfg.Debug = true
		srv := server.New(srvCfg,
			server.WithLogger(log),
			server.WithStore(store),
			server.WithPools(manager),
			server.WithMonitor(monitor),
			server.WithStatus(g.Status),
			server.WithGatherer(registry),
		)
		eg.Go(func() error { return srv.ListenAndServe(ctx) })
	}

	runErr := eg.Wait()
	status := g.Status()
	if status.Phase != game.Over.String() && status.Score > 0 {
		// quit mid-game still counts
		submitScore(context.Background(), store, status.Score, log)
	}
	session.End(status.Score, runErr)
	finiScreen()

	if runErr != nil {
		return runErr
	}
	fmt.Printf("score %d  best %d  orders %d  played %s\n",
		status.Score, status.Best, status.Orders, status.Played.Round(time.Second))
	return nil
}

func submitScore(ctx context.Context, store highscore.Store, score int, log *zap.Logger) {
	best, improved, err := store.Submit(ctx, score)
	if err != nil {
		log.Error("failed to submit high score", zap.Int("score", score), zap.Error(err))
		return
	}
	log.Info("score submitted", zap.Int("score", score), zap.Int("best", best), zap.Bool("improved", improved))
}

func shutdownProvider(p *observability.Provider, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}
}
