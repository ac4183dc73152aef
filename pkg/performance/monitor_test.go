package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const frame60 = 16670 * time.Microsecond

// feed drives m with n frames of the given duration starting at *clock.
func feed(m *Monitor, clock *time.Duration, n int, frameTime time.Duration) {
	for i := 0; i < n; i++ {
		*clock += frameTime
		m.Update(*clock)
	}
}

func TestFirstUpdateOnlyAnchors(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var got []Stats
	m.OnStats(func(s Stats) { got = append(got, s) })

	m.Update(5 * time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].TotalFrames)
	assert.Equal(t, int64(0), m.Stats().TotalFrames)
}

func TestFPSIsClampedToTarget(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 30, time.Millisecond)
	feed(m, &clock, 1, 0)

	s := m.Stats()
	for name, v := range map[string]float64{
		"current": s.CurrentFPS,
		"average": s.AverageFPS,
		"min":     s.MinFPS,
		"max":     s.MaxFPS,
	} {
		assert.LessOrEqual(t, v, 60.0, name)
	}
	assert.Equal(t, 60.0, s.AverageFPS)
}

func TestSteadySixtyStaysHigh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleSize = 10
	m := NewMonitor(cfg)

	for i := 0; i < 10; i++ {
		m.Update(time.Duration(i) * frame60)
	}

	s := m.Stats()
	assert.InDelta(t, 60, s.AverageFPS, 1)
	assert.Equal(t, 9, s.Samples)
	assert.Equal(t, High, m.Level())
}

func TestStatsOverWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleSize = 4
	m := NewMonitor(cfg)

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 2, 20*time.Millisecond)
	feed(m, &clock, 1, 40*time.Millisecond)
	feed(m, &clock, 1, 20*time.Millisecond)

	s := m.Stats()
	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, int64(4), s.TotalFrames)
	assert.InDelta(t, 40, s.AverageFPS, 0.01)
	assert.InDelta(t, 25, s.MinFPS, 0.01)
	assert.InDelta(t, 50, s.MaxFPS, 0.01)
	assert.InDelta(t, 50, s.CurrentFPS, 0.01)
	assert.Equal(t, 20*time.Millisecond, s.FrameTime)
	// only the 40ms frame exceeds 1.5 x 16.67ms
	assert.Equal(t, 1, s.DroppedFrames)

	// oldest sample falls out of the window
	feed(m, &clock, 1, 20*time.Millisecond)
	assert.Equal(t, 4, m.Stats().Samples)
	assert.Equal(t, int64(5), m.Stats().TotalFrames)
}

func TestSingleSpikeDoesNotChangeLevel(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	changes := 0
	m.OnLevelChange(func(LevelChange) { changes++ })

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 60, frame60)
	feed(m, &clock, 1, 100*time.Millisecond)
	feed(m, &clock, 119, frame60)

	assert.Equal(t, High, m.Level())
	assert.Zero(t, changes)
}

func TestSustainedDegradationChangesOnce(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var events []LevelChange
	m.OnLevelChange(func(e LevelChange) { events = append(events, e) })

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 119, 200*time.Millisecond)
	assert.Equal(t, High, m.Level(), "no vote before the history is full")

	feed(m, &clock, 30, 200*time.Millisecond)

	assert.Equal(t, Critical, m.Level())
	require.Len(t, events, 1)
	assert.Equal(t, High, events[0].Old)
	assert.Equal(t, Critical, events[0].New)
	assert.Equal(t, DefaultQualityTable()[Critical], events[0].Settings)
	assert.False(t, events[0].Forced)
}

func TestRecoveryAfterDegradation(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var levels []Level
	m.OnLevelChange(func(e LevelChange) { levels = append(levels, e.New) })

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 130, 200*time.Millisecond)
	feed(m, &clock, 200, frame60)

	assert.Equal(t, High, m.Level())
	require.NotEmpty(t, levels)
	assert.Equal(t, Critical, levels[0])
	assert.Equal(t, High, levels[len(levels)-1])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		avg     float64
		dropped int
		want    Level
	}{
		{"full speed", 60, 0, High},
		{"just high", 54, 5, High},
		{"high fps many drops", 58, 6, Medium},
		{"medium", 50, 0, Medium},
		{"medium fps too many drops", 50, 12, Low},
		{"low", 35, 0, Low},
		{"low fps too many drops", 35, 24, Critical},
		{"critical", 20, 0, Critical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(DefaultConfig())
			m.stats.AverageFPS = tt.avg
			m.stats.DroppedFrames = tt.dropped
			assert.Equal(t, tt.want, m.classify())
		})
	}
}

func TestVoteTieKeepsCommittedLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelChangeDelay = 4
	cfg.VoteWindow = 4
	m := NewMonitor(cfg)

	for _, l := range []Level{High, High, Low, Low} {
		m.pushCandidate(l)
	}
	assert.Equal(t, High, m.vote())

	m.level = Medium
	assert.Equal(t, Low, m.vote(), "worst leader wins when committed level is not tied")
}

func TestFrameDropEvent(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var drops []FrameDrop
	m.OnFrameDrop(func(d FrameDrop) { drops = append(drops, d) })

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 5, frame60)
	feed(m, &clock, 1, 50*time.Millisecond)

	require.Len(t, drops, 1)
	assert.Equal(t, 50*time.Millisecond, drops[0].FrameTime)
	assert.Equal(t, int64(6), drops[0].Frame)
	assert.Equal(t, int64(1), m.Report().FrameDrops)
}

func TestClockGoingBackwardsReanchors(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	m.Update(10 * time.Second)
	m.Update(10*time.Second + frame60)
	m.Update(time.Second)
	m.Update(time.Second + frame60)

	s := m.Stats()
	assert.Equal(t, int64(2), s.TotalFrames)
	assert.Equal(t, frame60, s.FrameTime)
}

func TestSetLevel(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var events []LevelChange
	m.OnLevelChange(func(e LevelChange) { events = append(events, e) })

	assert.False(t, m.SetLevel(Level(9), true))
	assert.False(t, m.SetLevelByName("turbo", true))
	assert.Empty(t, events)

	assert.True(t, m.SetLevelByName("LOW", true))
	require.Len(t, events, 1)
	assert.Equal(t, LevelChange{Old: High, New: Low, Settings: DefaultQualityTable()[Low], Forced: true}, events[0])
	assert.Equal(t, Low, m.Level())
	assert.Equal(t, 120, m.Report().Candidates["low"])

	assert.True(t, m.SetLevel(Low, true))
	assert.Len(t, events, 1, "no event when the level is unchanged")
}

func TestForcedLevelHoldsUntilOutvoted(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.SetLevel(Critical, true)

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 14, frame60)
	assert.Equal(t, Critical, m.Level())

	// 16 of the last 30 candidates are now high
	feed(m, &clock, 2, frame60)
	assert.Equal(t, High, m.Level())
}

func TestReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialLevel = Medium
	m := NewMonitor(cfg)

	changes := 0
	m.OnLevelChange(func(LevelChange) { changes++ })

	var clock time.Duration
	m.Update(clock)
	feed(m, &clock, 10, frame60)
	m.SetLevel(Critical, true)
	require.Equal(t, 1, changes)

	m.Reset()
	assert.Equal(t, 1, changes)
	assert.Equal(t, Medium, m.Level())
	assert.Equal(t, Stats{}, m.Stats())

	r := m.Report()
	assert.Zero(t, r.LevelChanges)
	for _, n := range r.Candidates {
		assert.Zero(t, n)
	}
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := NewMonitor(DefaultConfig(), WithLogger(zap.New(core)))

	called := false
	m.OnLevelChange(func(LevelChange) { panic("boom") })
	m.OnLevelChange(func(LevelChange) { called = true })

	assert.NotPanics(t, func() { m.SetLevel(Low, true) })
	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("performance event handler panicked").Len())
}

func TestUnsubscribe(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	n := 0
	stop := m.OnStats(func(Stats) { n++ })
	m.Update(0)
	stop()
	stop()
	m.Update(frame60)

	assert.Equal(t, 1, n)
	assert.Zero(t, m.onStats.count())
}

func TestHandlersMayCallBack(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	var seen QualitySettings
	m.OnLevelChange(func(LevelChange) { seen = m.QualitySettings() })
	m.SetLevel(Medium, false)

	assert.Equal(t, DefaultQualityTable()[Medium], seen)
}

func TestConfigDefaults(t *testing.T) {
	m := NewMonitor(Config{VoteWindow: 500, InitialLevel: Level(-1)})

	assert.Equal(t, 60.0, m.cfg.TargetFPS)
	assert.Equal(t, 120, m.cfg.LevelChangeDelay)
	assert.Equal(t, 120, m.cfg.VoteWindow)
	assert.Equal(t, High, m.Level())
	assert.Equal(t, time.Second/60, m.TargetFrameTime())
}
