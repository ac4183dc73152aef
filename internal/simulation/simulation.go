// Package simulation drives the real game loop headlessly on a synthetic
// frame clock. It is the engine behind "burgerdrop bench": each profile
// shapes frame times so the performance monitor, pool resizing and the
// renderer feature switches can be observed without a terminal.
package simulation

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/metrics"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

// simulatedLives keeps one session alive for the whole run; a restart
// would reset the monitor mid-profile.
const simulatedLives = 1 << 20

// Options configures a run.
type Options struct {
	Profile Profile
	Frames  int
	Seed    uint64
	// ClickEvery is how many frames the bot waits between clicks.
	ClickEvery int
	// MissRate is the probability that a bot click targets a wrong
	// ingredient.
	MissRate float64
	// TracePath, when set, receives one JSON line per frame. The file
	// extension selects the compression algorithm.
	TracePath string
}

// DefaultOptions returns a one-minute steady run.
func DefaultOptions() Options {
	return Options{
		Profile:    Steady,
		Frames:     3600,
		Seed:       1,
		ClickEvery: 12,
		MissRate:   0.1,
	}
}

// LevelChangeRecord is a level change observed during the run.
type LevelChangeRecord struct {
	Frame int    `json:"frame"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// TickLatency summarises the wall time spent inside Game.Tick.
type TickLatency struct {
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

// Report is the result of a run.
type Report struct {
	Profile           Profile                   `json:"profile"`
	Frames            int                       `json:"frames"`
	Seed              uint64                    `json:"seed"`
	SimulatedDuration time.Duration             `json:"simulated_duration"`
	WallTime          time.Duration             `json:"wall_time"`
	FramesPerSecond   float64                   `json:"frames_per_second"`
	TickLatency       TickLatency               `json:"tick_latency"`
	LevelChanges      []LevelChangeRecord       `json:"level_changes"`
	FeatureSwitches   int                       `json:"feature_switches"`
	FinalLevel        performance.Level         `json:"final_level"`
	Monitor           performance.Report        `json:"monitor"`
	Pools             map[string]pool.Stats     `json:"pools"`
	Game              game.Status               `json:"game"`
	Clicks            int                       `json:"clicks"`
	Resources         performance.ResourceUsage `json:"resources"`
	TracePath         string                    `json:"trace_path,omitempty"`
	TraceAlgorithm    string                    `json:"trace_algorithm,omitempty"`
	TraceBytes        int64                     `json:"trace_bytes,omitempty"`
}

// recorder is the headless renderer: it keeps the latest frame for the bot
// and counts feature switches.
type recorder struct {
	frame    *game.Frame
	switches int
}

func (r *recorder) SetFeatures(game.Features) { r.switches++ }

func (r *recorder) Draw(f *game.Frame) { r.frame = f }

// Run executes one simulation. It checks ctx between frames.
func Run(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Frames <= 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "frames must be positive")
	}
	if opts.Profile == "" {
		opts.Profile = Steady
	}
	if _, err := ParseProfile(string(opts.Profile)); err != nil {
		return nil, err
	}
	if opts.ClickEvery <= 0 {
		opts.ClickEvery = DefaultOptions().ClickEvery
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	resources := performance.NewResourceMonitor()

	manager := pool.NewManager(pool.WithLogger(logger))
	monitor := performance.NewMonitor(
		cfg.MonitorConfig(performance.High),
		performance.WithLogger(logger),
		performance.WithQualityTable(cfg.QualityTable()),
	)

	gameCfg := cfg.Game
	gameCfg.Lives = simulatedLives
	view := &recorder{}
	g := game.New(gameCfg, cfg.Pools, manager, monitor,
		game.WithLogger(logger),
		game.WithRenderer(view),
		game.WithRand(rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))),
	)
	defer g.Close()

	report := &Report{Profile: opts.Profile, Frames: opts.Frames, Seed: opts.Seed}
	frame := 0
	unsubscribe := monitor.OnLevelChange(func(e performance.LevelChange) {
		report.LevelChanges = append(report.LevelChanges, LevelChangeRecord{
			Frame: frame, From: e.Old.String(), To: e.New.String(),
		})
	})
	defer unsubscribe()

	var trace *traceWriter
	if opts.TracePath != "" {
		var err error
		if trace, err = openTrace(opts.TracePath); err != nil {
			return nil, err
		}
		report.TracePath = opts.TracePath
		report.TraceAlgorithm = string(trace.algorithm)
	}

	logger.Info("simulation started",
		zap.String("profile", string(opts.Profile)),
		zap.Int("frames", opts.Frames),
		zap.Uint64("seed", opts.Seed))

	latency := metrics.NewLatencyTracker(opts.Frames)
	target := monitor.TargetFrameTime()
	timer := metrics.NewTimer("simulation." + string(opts.Profile))
	throughput := metrics.NewRateTracker()
	var now time.Duration

	g.Start()
	var runErr error
	for frame = 0; frame < opts.Frames; frame++ {
		if frame%60 == 0 {
			if err := ctx.Err(); err != nil {
				runErr = errors.Wrap(err, errors.ErrorTypeTimeout, "simulation cancelled").
					WithDetail("frame", frame)
				break
			}
		}

		ft := opts.Profile.FrameTime(frame, opts.Frames, target, rng)
		now += ft

		tickStart := time.Now()
		g.Tick(now)
		tick := time.Since(tickStart)
		latency.Record(tick)
		throughput.Increment(1)

		if frame%opts.ClickEvery == 0 && view.frame != nil {
			if in, ok := botClick(view.frame, rng, opts.MissRate); ok {
				g.HandleInput(in)
				report.Clicks++
			}
		}

		if trace != nil {
			status := g.Status()
			stats := monitor.Stats()
			if err := trace.Write(FrameRecord{
				Frame:       frame,
				Now:         now,
				FrameTime:   ft,
				TickTime:    tick,
				Level:       status.Level,
				AverageFPS:  stats.AverageFPS,
				Particles:   status.Particles,
				Ingredients: status.Ingredients,
				Score:       status.Score,
			}); err != nil {
				runErr = err
				break
			}
		}
	}

	if trace != nil {
		size, err := trace.Close()
		report.TraceBytes = size
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	report.SimulatedDuration = now
	report.WallTime = timer.Stop()
	report.FramesPerSecond = throughput.GetAndReset()
	ps := latency.Percentiles(50, 90, 99, 100)
	report.TickLatency = TickLatency{P50: ps[0], P90: ps[1], P99: ps[2], Max: ps[3]}
	report.FeatureSwitches = view.switches
	report.FinalLevel = monitor.Level()
	report.Monitor = monitor.Report()
	report.Pools = manager.AllStats()
	report.Game = g.Status()
	report.Resources = resources.Usage()

	logger.Info("simulation finished",
		zap.String("timer", timer.Name()),
		zap.Stringer("final_level", report.FinalLevel),
		zap.Int("level_changes", len(report.LevelChanges)),
		zap.Int("score", report.Game.Score),
		zap.Duration("wall_time", report.WallTime))
	return report, nil
}

// botClick picks a target on the current frame: usually the lowest
// ingredient the order needs next, sometimes a wrong one.
func botClick(f *game.Frame, rng *rand.Rand, missRate float64) (game.Input, bool) {
	if f.Order == nil || len(f.Ingredients) == 0 {
		return game.Input{}, false
	}
	want := f.Order.Expected()
	miss := rng.Float64() < missRate

	var target *game.Ingredient
	for _, in := range f.Ingredients {
		if (in.Kind == want) == miss {
			continue
		}
		if target == nil || in.Y > target.Y {
			target = in
		}
	}
	if target == nil {
		return game.Input{}, false
	}
	return game.Input{Kind: game.InputClick, X: target.X, Y: target.Y}, true
}
