package config

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/logger"
	"github.com/ajitpratap0/burgerdrop/pkg/observability"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
)

// Config is the complete application configuration. Every section has a
// usable default, so an empty file is a valid configuration.
type Config struct {
	// Game tunes the rules and the frame loop
	Game GameConfig `yaml:"game" json:"game" mapstructure:"game"`
	// Pools sizes the entity pools
	Pools PoolsConfig `yaml:"pools" json:"pools" mapstructure:"pools"`
	// Performance configures the frame monitor
	Performance PerformanceConfig `yaml:"performance" json:"performance" mapstructure:"performance"`
	// Quality overrides rows of the quality table, keyed by level name
	Quality map[string]performance.QualitySettings `yaml:"quality,omitempty" json:"quality,omitempty" mapstructure:"quality"`
	// Logging configures the global logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
	// Server configures the HTTP server
	Server ServerConfig `yaml:"server" json:"server" mapstructure:"server"`
	// Metrics configures Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	// Tracing configures OpenTelemetry
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`
	// HighScore selects the high-score store
	HighScore HighScoreConfig `yaml:"highscore" json:"highscore" mapstructure:"highscore"`
}

// GameConfig contains rule and loop settings.
type GameConfig struct {
	// Width and Height of the playfield in cells
	Width  int `yaml:"width" json:"width" mapstructure:"width"`
	Height int `yaml:"height" json:"height" mapstructure:"height"`
	// TickRate is the number of loop ticks per second
	TickRate int `yaml:"tick_rate" json:"tick_rate" mapstructure:"tick_rate"`
	// Lives at the start of a session
	Lives int `yaml:"lives" json:"lives" mapstructure:"lives"`
	// OrderTimeLimit is how long a customer waits
	OrderTimeLimit time.Duration `yaml:"order_time_limit" json:"order_time_limit" mapstructure:"order_time_limit"`
	// SpawnInterval between ingredients at the start of a session
	SpawnInterval time.Duration `yaml:"spawn_interval" json:"spawn_interval" mapstructure:"spawn_interval"`
	// MinSpawnInterval is the floor of the difficulty ramp
	MinSpawnInterval time.Duration `yaml:"min_spawn_interval" json:"min_spawn_interval" mapstructure:"min_spawn_interval"`
	// Sound enables synthesized sound effects
	Sound bool `yaml:"sound" json:"sound" mapstructure:"sound"`
	// Volume of sound effects in [0,1]
	Volume float64 `yaml:"volume" json:"volume" mapstructure:"volume"`
	// Seed for the random source, 0 picks one from the clock
	Seed int64 `yaml:"seed" json:"seed" mapstructure:"seed"`
}

// PoolSize bounds one pool.
type PoolSize struct {
	Initial int `yaml:"initial" json:"initial" mapstructure:"initial"`
	Max     int `yaml:"max" json:"max" mapstructure:"max"`
}

// PoolsConfig sizes every entity pool.
type PoolsConfig struct {
	Particles   PoolSize `yaml:"particles" json:"particles" mapstructure:"particles"`
	Celebration PoolSize `yaml:"celebration" json:"celebration" mapstructure:"celebration"`
	Ingredients PoolSize `yaml:"ingredients" json:"ingredients" mapstructure:"ingredients"`
	PowerUps    PoolSize `yaml:"powerups" json:"powerups" mapstructure:"powerups"`
}

// PerformanceConfig mirrors performance.Config with a textual level.
type PerformanceConfig struct {
	TargetFPS            float64 `yaml:"target_fps" json:"target_fps" mapstructure:"target_fps"`
	LowFPSThreshold      float64 `yaml:"low_fps_threshold" json:"low_fps_threshold" mapstructure:"low_fps_threshold"`
	CriticalFPSThreshold float64 `yaml:"critical_fps_threshold" json:"critical_fps_threshold" mapstructure:"critical_fps_threshold"`
	SampleSize           int     `yaml:"sample_size" json:"sample_size" mapstructure:"sample_size"`
	LevelChangeDelay     int     `yaml:"level_change_delay" json:"level_change_delay" mapstructure:"level_change_delay"`
	VoteWindow           int     `yaml:"vote_window" json:"vote_window" mapstructure:"vote_window"`
	// InitialLevel is a level name or "auto" to probe the host
	InitialLevel string `yaml:"initial_level" json:"initial_level" mapstructure:"initial_level"`
}

// LoggingConfig configures the global zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
	// File receives log output; empty means stdout. The terminal client
	// needs a file so logs do not corrupt the screen.
	File string `yaml:"file" json:"file" mapstructure:"file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Gzip            bool          `yaml:"gzip" json:"gzip" mapstructure:"gzip"`
	// Debug exposes /debug/pools and /debug/performance
	Debug bool `yaml:"debug" json:"debug" mapstructure:"debug"`
	// DebugAddr, when set, makes "play" serve debug endpoints alongside
	// the terminal client
	DebugAddr string `yaml:"debug_addr" json:"debug_addr" mapstructure:"debug_addr"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter" mapstructure:"exporter"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" mapstructure:"sampling_rate"`
	Environment  string  `yaml:"environment" json:"environment" mapstructure:"environment"`
}

// HighScoreConfig selects and configures the high-score store.
type HighScoreConfig struct {
	// Backend is one of memory, file, postgres, mysql, mongo
	Backend string `yaml:"backend" json:"backend" mapstructure:"backend"`
	// Path of the JSON file for the file backend
	Path string `yaml:"path" json:"path" mapstructure:"path"`
	// DSN is the connection string for the database backends
	DSN string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
	// Database and Collection are used by the mongo backend
	Database   string `yaml:"database" json:"database" mapstructure:"database"`
	Collection string `yaml:"collection" json:"collection" mapstructure:"collection"`
	// Key identifies the scalar row or document
	Key     string        `yaml:"key" json:"key" mapstructure:"key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	mon := performance.DefaultConfig()
	return &Config{
		Game: GameConfig{
			Width:            60,
			Height:           24,
			TickRate:         60,
			Lives:            3,
			OrderTimeLimit:   30 * time.Second,
			SpawnInterval:    1200 * time.Millisecond,
			MinSpawnInterval: 400 * time.Millisecond,
			Sound:            true,
			Volume:           0.6,
		},
		Pools: PoolsConfig{
			Particles:   PoolSize{Initial: 50, Max: 300},
			Celebration: PoolSize{Initial: 20, Max: 100},
			Ingredients: PoolSize{Initial: 20, Max: 50},
			PowerUps:    PoolSize{Initial: 2, Max: 5},
		},
		Performance: PerformanceConfig{
			TargetFPS:            mon.TargetFPS,
			LowFPSThreshold:      mon.LowFPSThreshold,
			CriticalFPSThreshold: mon.CriticalFPSThreshold,
			SampleSize:           mon.SampleSize,
			LevelChangeDelay:     mon.LevelChangeDelay,
			VoteWindow:           mon.VoteWindow,
			InitialLevel:         "auto",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Gzip:            true,
			Debug:           true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "burgerdrop",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
			Environment:  "development",
		},
		HighScore: HighScoreConfig{
			Backend:    "file",
			Path:       "burgerdrop-highscore.json",
			Database:   "burgerdrop",
			Collection: "highscores",
			Key:        "default",
			Timeout:    3 * time.Second,
		},
	}
}

var highScoreBackends = map[string]bool{
	"memory": true, "file": true, "postgres": true, "mysql": true, "mongo": true,
}

// Validate checks the configuration for values the game cannot run with.
// It returns the first problem found as a validation error.
func (c *Config) Validate() error {
	fail := func(field, format string, args ...interface{}) error {
		return errors.Newf(errors.ErrorTypeValidation, format, args...).WithDetail("field", field)
	}

	if c.Game.Width < 20 || c.Game.Height < 10 {
		return fail("game", "playfield must be at least 20x10, got %dx%d", c.Game.Width, c.Game.Height)
	}
	if c.Game.TickRate <= 0 {
		return fail("game.tick_rate", "tick_rate must be positive")
	}
	if c.Game.Lives <= 0 {
		return fail("game.lives", "lives must be positive")
	}
	if c.Game.OrderTimeLimit <= 0 {
		return fail("game.order_time_limit", "order_time_limit must be positive")
	}
	if c.Game.Volume < 0 || c.Game.Volume > 1 {
		return fail("game.volume", "volume must be within [0,1], got %v", c.Game.Volume)
	}
	if c.Game.MinSpawnInterval <= 0 || c.Game.SpawnInterval < c.Game.MinSpawnInterval {
		return fail("game.spawn_interval", "spawn_interval must be at least min_spawn_interval and both positive")
	}

	for name, ps := range map[string]PoolSize{
		"particles":   c.Pools.Particles,
		"celebration": c.Pools.Celebration,
		"ingredients": c.Pools.Ingredients,
		"powerups":    c.Pools.PowerUps,
	} {
		if ps.Initial < 0 || ps.Max <= 0 || ps.Initial > ps.Max {
			return fail("pools."+name, "pool %s needs 0 <= initial <= max and max > 0", name)
		}
	}

	p := c.Performance
	if p.TargetFPS <= 0 {
		return fail("performance.target_fps", "target_fps must be positive")
	}
	if !(0 < p.CriticalFPSThreshold && p.CriticalFPSThreshold < p.LowFPSThreshold && p.LowFPSThreshold < p.TargetFPS) {
		return fail("performance", "thresholds must satisfy 0 < critical < low < target")
	}
	if p.SampleSize <= 0 || p.LevelChangeDelay <= 0 || p.VoteWindow <= 0 {
		return fail("performance", "sample_size, level_change_delay and vote_window must be positive")
	}
	if p.VoteWindow > p.LevelChangeDelay {
		return fail("performance.vote_window", "vote_window cannot exceed level_change_delay")
	}
	if _, ok := performance.ParseLevel(p.InitialLevel); !ok && !strings.EqualFold(p.InitialLevel, "auto") {
		return fail("performance.initial_level", "unknown initial_level %q", p.InitialLevel)
	}

	for name := range c.Quality {
		if _, ok := performance.ParseLevel(name); !ok {
			return fail("quality", "unknown quality level %q", name)
		}
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fail("logging.level", "invalid log level %q", c.Logging.Level)
	}

	if !highScoreBackends[c.HighScore.Backend] {
		return fail("highscore.backend", "unknown highscore backend %q", c.HighScore.Backend)
	}
	switch c.HighScore.Backend {
	case "file":
		if c.HighScore.Path == "" {
			return fail("highscore.path", "file backend requires a path")
		}
	case "postgres", "mysql", "mongo":
		if c.HighScore.DSN == "" {
			return fail("highscore.dsn", "%s backend requires a dsn", c.HighScore.Backend)
		}
	}
	return nil
}

// MonitorConfig converts the performance section. initial is used when
// InitialLevel is "auto".
func (c *Config) MonitorConfig(initial performance.Level) performance.Config {
	level, ok := performance.ParseLevel(c.Performance.InitialLevel)
	if !ok {
		level = initial
	}
	return performance.Config{
		TargetFPS:            c.Performance.TargetFPS,
		LowFPSThreshold:      c.Performance.LowFPSThreshold,
		CriticalFPSThreshold: c.Performance.CriticalFPSThreshold,
		SampleSize:           c.Performance.SampleSize,
		LevelChangeDelay:     c.Performance.LevelChangeDelay,
		VoteWindow:           c.Performance.VoteWindow,
		InitialLevel:         level,
	}
}

// AutoLevel reports whether the initial level should come from a host probe.
func (c *Config) AutoLevel() bool {
	return strings.EqualFold(c.Performance.InitialLevel, "auto")
}

// QualityTable returns the default table with the configured overrides.
func (c *Config) QualityTable() performance.QualityTable {
	table, _ := performance.DefaultQualityTable().WithOverrides(c.Quality)
	return table
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.Config{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		Encoding:    c.Logging.Encoding,
	}
	if c.Logging.File != "" {
		lc.OutputPaths = []string{c.Logging.File}
	}
	return lc
}

// TracingConfig converts the tracing section.
func (c *Config) TracingConfig(version string) observability.TracingConfig {
	tc := observability.DefaultConfig()
	tc.Enabled = c.Tracing.Enabled
	tc.ExporterType = c.Tracing.Exporter
	tc.SamplingRate = c.Tracing.SamplingRate
	tc.Environment = c.Tracing.Environment
	tc.ServiceVersion = version
	return tc
}

// String renders a short human summary.
func (c *Config) String() string {
	return fmt.Sprintf("playfield=%dx%d tick=%d/s target_fps=%.0f highscore=%s",
		c.Game.Width, c.Game.Height, c.Game.TickRate, c.Performance.TargetFPS, c.HighScore.Backend)
}
