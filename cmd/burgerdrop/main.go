// Command burgerdrop is the Burger Drop terminal game, its HTTP edge and
// its headless benchmark.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/logger"
)

var version = "0.1.0"

// app carries the state shared by every command.
type app struct {
	configPath string
	logLevel   string
}

// config reads the configuration. Flags override the file and the
// environment.
func (a *app) config() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// initLogger initialises the global logger from cfg and tags ctx with the
// run mode. The returned logger carries the context fields.
func (a *app) initLogger(ctx context.Context, cfg *config.Config, mode string) (context.Context, *zap.Logger, error) {
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return ctx, nil, err
	}
	ctx = context.WithValue(ctx, logger.ModeKey, mode)
	return ctx, logger.WithContext(ctx), nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	a := &app{}
	root := &cobra.Command{
		Use:   "burgerdrop",
		Short: "Burger Drop - catch the ingredients, build the burger",
		Long: `Burger Drop is a terminal arcade game. Ingredients fall from the top of the
screen and every customer order must be caught in sequence before the
customer gives up. Quality adapts to the frame rate the host can sustain.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newPlayCommand(a),
		newServeCommand(a),
		newBenchCommand(a),
		newConfigCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Burger Drop v%s\n", version)
				fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
				fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
