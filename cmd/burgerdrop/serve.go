package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/internal/server"
	"github.com/ajitpratap0/burgerdrop/pkg/highscore"
	"github.com/ajitpratap0/burgerdrop/pkg/observability"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the high score API and landing page",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, log, err := a.initLogger(ctx, cfg, "serve")
			if err != nil {
				return err
			}

			store, err := highscore.Open(ctx, cfg.HighScore, log)
			if err != nil {
				return err
			}
			defer store.Close()

			provider, err := observability.NewProvider(cfg.TracingConfig(version))
			if err != nil {
				return err
			}
			provider.SetGlobal()
			defer shutdownProvider(provider, log)

			opts := []server.Option{
				server.WithLogger(log),
				server.WithStore(store),
				server.WithTracer(provider.Tracer()),
			}
			if cfg.Metrics.Enabled {
				registry := prometheus.NewRegistry()
				registry.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts = append(opts, server.WithGatherer(registry))
			}

			log.Info("serving", zap.String("addr", cfg.Server.Addr), zap.String("highscore", cfg.HighScore.Backend))
			return server.New(cfg.Server, opts...).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
