package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/burgerdrop/internal/simulation"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

func newBenchCommand(a *app) *cobra.Command {
	var (
		profile  string
		trace    string
		output   string
		defaults = simulation.DefaultOptions()
		opts     = defaults
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the game headlessly against synthetic frame-time profiles",
		Long: `Drive the real game loop without a terminal. Each profile shapes the frame
times fed to the performance monitor (steady, degrading, spiky, recovering)
and a bot clicks ingredients. The JSON report covers level changes, pool
statistics and tick latency. Use "all" to run every profile.

A trace path writes one JSON line per frame; its extension picks the
compression (.gz, .zst, .lz4, .s2, .sz).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx, log, err := a.initLogger(cmd.Context(), cfg, "bench")
			if err != nil {
				return err
			}

			profiles := simulation.Profiles
			if !strings.EqualFold(strings.TrimSpace(profile), "all") {
				p, err := simulation.ParseProfile(profile)
				if err != nil {
					return err
				}
				profiles = []simulation.Profile{p}
			}
			if trace != "" && len(profiles) > 1 {
				return errors.New(errors.ErrorTypeValidation, "--trace needs a single profile")
			}

			reports := make([]*simulation.Report, 0, len(profiles))
			for _, p := range profiles {
				run := opts
				run.Profile = p
				run.TracePath = trace
				report, err := simulation.Run(ctx, cfg, run, log)
				if err != nil {
					return err
				}
				reports = append(reports, report)
				printSummary(cmd.ErrOrStderr(), report)
			}
			return writeReports(cmd.OutOrStdout(), output, reports)
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", string(defaults.Profile), "Frame-time profile, or all")
	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", defaults.Frames, "Frames to simulate")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", defaults.Seed, "Random seed")
	cmd.Flags().IntVar(&opts.ClickEvery, "click-every", defaults.ClickEvery, "Frames between bot clicks")
	cmd.Flags().Float64Var(&opts.MissRate, "miss-rate", defaults.MissRate, "Probability of a wrong click")
	cmd.Flags().StringVar(&trace, "trace", "", "Write a per-frame trace to this path")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the JSON report to a file instead of stdout")
	return cmd
}

func printSummary(w io.Writer, r *simulation.Report) {
	fmt.Fprintf(w, "%-10s final=%-8s changes=%-2d drops=%-4d score=%-6d tick p99=%s wall=%s\n",
		r.Profile, r.FinalLevel, len(r.LevelChanges), r.Monitor.FrameDrops,
		r.Game.Score, r.TickLatency.P99, r.WallTime.Round(1e6))
	if r.TracePath != "" {
		fmt.Fprintf(w, "%-10s trace=%s (%s, %d bytes)\n", "", r.TracePath, r.TraceAlgorithm, r.TraceBytes)
	}
}

func writeReports(stdout io.Writer, path string, reports []*simulation.Report) error {
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "failed to encode report")
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write report").
			WithDetail("path", path)
	}
	return nil
}
