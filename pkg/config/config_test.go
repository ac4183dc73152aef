package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "burgerdrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFile(t *testing.T) {
	t.Setenv("HS_FILE", "/tmp/scores.json")
	path := writeFile(t, `
game:
  lives: 5
  order_time_limit: 45s
performance:
  target_fps: 30
  low_fps_threshold: 25
  critical_fps_threshold: 15
  initial_level: low
quality:
  critical:
    max_particles: 10
    particle_detail: minimal
    render_scale: 0.25
highscore:
  path: ${HS_FILE}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Game.Lives)
	assert.Equal(t, 45*time.Second, cfg.Game.OrderTimeLimit)
	assert.Equal(t, 60, cfg.Game.Width, "unset keys keep defaults")
	assert.Equal(t, 30.0, cfg.Performance.TargetFPS)
	assert.Equal(t, "/tmp/scores.json", cfg.HighScore.Path)

	mc := cfg.MonitorConfig(performance.High)
	assert.Equal(t, performance.Low, mc.InitialLevel)
	assert.Equal(t, 15.0, mc.CriticalFPSThreshold)

	table := cfg.QualityTable()
	assert.Equal(t, 10, table[performance.Critical].MaxParticles)
	assert.Equal(t, 0.25, table[performance.Critical].RenderScale)
	assert.Equal(t, performance.DefaultQualityTable()[performance.High], table[performance.High])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BURGERDROP_SERVER_ADDR", ":9999")
	t.Setenv("BURGERDROP_HIGHSCORE_BACKEND", "memory")
	t.Setenv("BURGERDROP_GAME_SOUND", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.HighScore.Backend)
	assert.False(t, cfg.Game.Sound)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(writeFile(t, "game: [unterminated"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(writeFile(t, "highscore:\n  backend: redis\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"tiny playfield", func(c *Config) { c.Game.Width = 5 }, "game"},
		{"no lives", func(c *Config) { c.Game.Lives = 0 }, "game.lives"},
		{"volume above one", func(c *Config) { c.Game.Volume = 1.5 }, "game.volume"},
		{"spawn below floor", func(c *Config) { c.Game.SpawnInterval = time.Millisecond }, "game.spawn_interval"},
		{"pool initial above max", func(c *Config) { c.Pools.PowerUps = PoolSize{Initial: 9, Max: 3} }, "pools.powerups"},
		{"vote window too large", func(c *Config) { c.Performance.VoteWindow = 500 }, "performance.vote_window"},
		{"bad initial level", func(c *Config) { c.Performance.InitialLevel = "ultra" }, "performance.initial_level"},
		{"bad quality key", func(c *Config) {
			c.Quality = map[string]performance.QualitySettings{"ultra": {}}
		}, "quality"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"postgres without dsn", func(c *Config) { c.HighScore.Backend = "postgres" }, "highscore.dsn"},
		{"file without path", func(c *Config) { c.HighScore.Path = "" }, "highscore.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, errors.ErrorTypeValidation, e.Type)
			assert.Equal(t, tt.field, e.Details["field"])
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Game.Lives = 7
	cfg.Performance.InitialLevel = "medium"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = "/tmp/burgerdrop.log"

	lc := cfg.LoggerConfig()
	assert.Equal(t, []string{"/tmp/burgerdrop.log"}, lc.OutputPaths)
	assert.Equal(t, "info", lc.Level)

	tc := cfg.TracingConfig("1.2.3")
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.False(t, tc.Enabled)

	assert.True(t, cfg.AutoLevel())
	assert.Contains(t, cfg.String(), "60x24")
}
