// Package performance samples frame durations, classifies sustained
// performance into quality levels and tells subscribers when the level
// changes.
package performance

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config configures a Monitor. Zero or negative values fall back to the
// defaults from DefaultConfig.
type Config struct {
	// TargetFPS is the frame rate the loop aims for. Reported FPS values
	// never exceed it.
	TargetFPS float64
	// LowFPSThreshold is the lowest average FPS still classified Medium.
	LowFPSThreshold float64
	// CriticalFPSThreshold is the lowest average FPS still classified Low.
	CriticalFPSThreshold float64
	// SampleSize is the length of the rolling frame-time window.
	SampleSize int
	// LevelChangeDelay is the number of candidate classifications that must
	// be collected before any vote can change the level.
	LevelChangeDelay int
	// VoteWindow is how many of the most recent candidates vote.
	VoteWindow int
	// InitialLevel is the level on creation and after Reset.
	InitialLevel Level
}

// DefaultConfig returns the standard 60 FPS configuration.
func DefaultConfig() Config {
	return Config{
		TargetFPS:            60,
		LowFPSThreshold:      45,
		CriticalFPSThreshold: 30,
		SampleSize:           60,
		LevelChangeDelay:     120,
		VoteWindow:           30,
		InitialLevel:         High,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetFPS <= 0 {
		c.TargetFPS = d.TargetFPS
	}
	if c.LowFPSThreshold <= 0 {
		c.LowFPSThreshold = d.LowFPSThreshold
	}
	if c.CriticalFPSThreshold <= 0 {
		c.CriticalFPSThreshold = d.CriticalFPSThreshold
	}
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	if c.LevelChangeDelay <= 0 {
		c.LevelChangeDelay = d.LevelChangeDelay
	}
	if c.VoteWindow <= 0 {
		c.VoteWindow = d.VoteWindow
	}
	if c.VoteWindow > c.LevelChangeDelay {
		c.VoteWindow = c.LevelChangeDelay
	}
	if !c.InitialLevel.Valid() {
		c.InitialLevel = High
	}
	return c
}

// Stats is a snapshot of the frame statistics over the current window.
type Stats struct {
	CurrentFPS    float64       `json:"current_fps"`
	AverageFPS    float64       `json:"average_fps"`
	MinFPS        float64       `json:"min_fps"`
	MaxFPS        float64       `json:"max_fps"`
	FrameTime     time.Duration `json:"frame_time"`
	DroppedFrames int           `json:"dropped_frames"`
	TotalFrames   int64         `json:"total_frames"`
	Samples       int           `json:"samples"`
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger for level changes and handler panics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithQualityTable replaces the default settings table.
func WithQualityTable(table QualityTable) Option {
	return func(m *Monitor) {
		m.table = table
	}
}

// WithClock sets the wall clock used for uptime reporting.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor classifies frame performance into quality levels.
//
// The loop calls Update once per frame with a monotonic timestamp. Each
// frame produces a candidate level from the rolling window statistics; the
// committed level only changes once LevelChangeDelay candidates have been
// collected and the most frequent of the last VoteWindow candidates differs
// from it. A single slow frame therefore never changes the level.
//
// Events are delivered synchronously after the monitor's lock is released,
// so handlers may call back into the monitor.
type Monitor struct {
	mu          sync.Mutex
	cfg         Config
	table       QualityTable
	targetFrame time.Duration
	dropLimit   time.Duration
	spikeLimit  time.Duration

	// rolling frame-time window, ring buffer
	samples   []time.Duration
	sampleAt  int
	sampleLen int

	// candidate history, ring buffer
	history []Level
	histAt  int
	histLen int

	level      Level
	stats      Stats
	last       time.Duration
	anchored   bool
	changes    int64
	frameDrops int64
	started    time.Time

	onLevel *emitter[LevelChange]
	onDrop  *emitter[FrameDrop]
	onStats *emitter[Stats]

	now    func() time.Time
	logger *zap.Logger
}

// NewMonitor creates a monitor at cfg.InitialLevel.
func NewMonitor(cfg Config, opts ...Option) *Monitor {
	cfg = cfg.withDefaults()
	m := &Monitor{
		cfg:     cfg,
		table:   DefaultQualityTable(),
		samples: make([]time.Duration, cfg.SampleSize),
		history: make([]Level, cfg.LevelChangeDelay),
		level:   cfg.InitialLevel,
		onLevel: newEmitter[LevelChange]("level_change"),
		onDrop:  newEmitter[FrameDrop]("frame_drop"),
		onStats: newEmitter[Stats]("stats"),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.targetFrame = time.Duration(float64(time.Second) / cfg.TargetFPS)
	m.dropLimit = m.targetFrame * 3 / 2
	m.spikeLimit = m.targetFrame * 2
	m.started = m.now()
	return m
}

// Update feeds the timestamp of the current frame. The first call only
// anchors the clock. A timestamp earlier than the previous one re-anchors
// without sampling.
func (m *Monitor) Update(now time.Duration) {
	var (
		change *LevelChange
		drop   *FrameDrop
	)

	m.mu.Lock()
	if !m.anchored || now < m.last {
		if m.anchored {
			m.logger.Debug("frame clock went backwards, re-anchoring",
				zap.Duration("last", m.last), zap.Duration("now", now))
		}
		m.anchored = true
		m.last = now
		stats := m.stats
		m.mu.Unlock()
		m.onStats.emit(m.logger, stats)
		return
	}

	frameTime := now - m.last
	m.last = now
	m.pushSample(frameTime)
	m.recompute(frameTime)

	if frameTime > m.spikeLimit {
		m.frameDrops++
		drop = &FrameDrop{FrameTime: frameTime, Target: m.targetFrame, Frame: m.stats.TotalFrames}
	}

	m.pushCandidate(m.classify())
	if m.histLen == len(m.history) {
		if voted := m.vote(); voted != m.level {
			change = m.commit(voted, false)
		}
	}
	stats := m.stats
	m.mu.Unlock()

	if drop != nil {
		m.onDrop.emit(m.logger, *drop)
	}
	if change != nil {
		m.onLevel.emit(m.logger, *change)
	}
	m.onStats.emit(m.logger, stats)
}

func (m *Monitor) pushSample(d time.Duration) {
	m.samples[m.sampleAt] = d
	m.sampleAt = (m.sampleAt + 1) % len(m.samples)
	if m.sampleLen < len(m.samples) {
		m.sampleLen++
	}
}

func (m *Monitor) pushCandidate(l Level) {
	m.history[m.histAt] = l
	m.histAt = (m.histAt + 1) % len(m.history)
	if m.histLen < len(m.history) {
		m.histLen++
	}
}

func (m *Monitor) recompute(frameTime time.Duration) {
	var (
		sum      time.Duration
		shortest = m.samples[0]
		longest  time.Duration
		dropped  int
	)
	for i := 0; i < m.sampleLen; i++ {
		d := m.samples[i]
		sum += d
		if d < shortest {
			shortest = d
		}
		if d > longest {
			longest = d
		}
		if d > m.dropLimit {
			dropped++
		}
	}

	m.stats.TotalFrames++
	m.stats.Samples = m.sampleLen
	m.stats.FrameTime = frameTime
	m.stats.DroppedFrames = dropped
	m.stats.CurrentFPS = m.fps(frameTime)
	m.stats.AverageFPS = m.fps(sum / time.Duration(m.sampleLen))
	m.stats.MinFPS = m.fps(longest)
	m.stats.MaxFPS = m.fps(shortest)
}

// fps converts a frame time to frames per second, clamped to the target.
func (m *Monitor) fps(frameTime time.Duration) float64 {
	if frameTime <= 0 {
		return m.cfg.TargetFPS
	}
	fps := float64(time.Second) / float64(frameTime)
	if fps > m.cfg.TargetFPS {
		return m.cfg.TargetFPS
	}
	return fps
}

func (m *Monitor) classify() Level {
	avg := m.stats.AverageFPS
	dropRate := float64(m.stats.DroppedFrames) / float64(m.cfg.SampleSize)

	switch {
	case avg >= 0.9*m.cfg.TargetFPS && dropRate < 0.10:
		return High
	case avg >= m.cfg.LowFPSThreshold && dropRate < 0.20:
		return Medium
	case avg >= m.cfg.CriticalFPSThreshold && dropRate < 0.40:
		return Low
	default:
		return Critical
	}
}

// vote returns the most frequent level among the last VoteWindow
// candidates. On a tie the committed level wins if it is among the leaders,
// otherwise the worst leading level does.
func (m *Monitor) vote() Level {
	var counts [len(levelNames)]int
	n := len(m.history)
	for i := 1; i <= m.cfg.VoteWindow; i++ {
		counts[m.history[(m.histAt-i+n)%n]]++
	}

	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	if counts[m.level] == best {
		return m.level
	}
	winner := High
	for _, l := range Levels {
		if counts[l] == best {
			winner = l
		}
	}
	return winner
}

func (m *Monitor) commit(level Level, forced bool) *LevelChange {
	old := m.level
	m.level = level
	m.changes++
	settings := m.table.Settings(level)

	m.logger.Info("performance level changed",
		zap.Stringer("from", old),
		zap.Stringer("to", level),
		zap.Bool("forced", forced),
		zap.Float64("average_fps", m.stats.AverageFPS),
		zap.Int("dropped_frames", m.stats.DroppedFrames))

	return &LevelChange{Old: old, New: level, Settings: settings, Forced: forced}
}

// Level returns the committed level.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// QualitySettings returns the settings of the committed level.
func (m *Monitor) QualitySettings() QualitySettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Settings(m.level)
}

// QualityTable returns a copy of the settings table in use.
func (m *Monitor) QualityTable() QualityTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table
}

// Stats returns the latest frame statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// TargetFrameTime is the frame duration matching the target FPS.
func (m *Monitor) TargetFrameTime() time.Duration {
	return m.targetFrame
}

// SetLevel overrides the committed level. With forced set the candidate
// history is filled with level so the next votes keep it. A change event
// is emitted before SetLevel returns when the level differs. Invalid
// levels are ignored and reported as false.
func (m *Monitor) SetLevel(level Level, forced bool) bool {
	if !level.Valid() {
		m.logger.Debug("ignoring invalid performance level", zap.Int("level", int(level)))
		return false
	}

	var change *LevelChange
	m.mu.Lock()
	if forced {
		for i := range m.history {
			m.history[i] = level
		}
		m.histAt = 0
		m.histLen = len(m.history)
	}
	if level != m.level {
		change = m.commit(level, forced)
	}
	m.mu.Unlock()

	if change != nil {
		m.onLevel.emit(m.logger, *change)
	}
	return true
}

// SetLevelByName is SetLevel for a level name. Unknown names are ignored.
func (m *Monitor) SetLevelByName(name string, forced bool) bool {
	level, ok := ParseLevel(name)
	if !ok {
		m.logger.Debug("ignoring unknown performance level", zap.String("level", name))
		return false
	}
	return m.SetLevel(level, forced)
}

// Reset discards all samples, candidates and counters and returns to the
// initial level. No event is emitted.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.samples)
	clear(m.history)
	m.sampleAt, m.sampleLen = 0, 0
	m.histAt, m.histLen = 0, 0
	m.stats = Stats{}
	m.anchored = false
	m.last = 0
	m.level = m.cfg.InitialLevel
	m.changes = 0
	m.frameDrops = 0
	m.started = m.now()
}

// OnLevelChange subscribes fn to committed level changes. The returned
// function unsubscribes.
func (m *Monitor) OnLevelChange(fn func(LevelChange)) func() {
	return m.onLevel.subscribe(fn)
}

// OnFrameDrop subscribes fn to frames slower than twice the target.
func (m *Monitor) OnFrameDrop(fn func(FrameDrop)) func() {
	return m.onDrop.subscribe(fn)
}

// OnStats subscribes fn to the statistics emitted after every Update.
func (m *Monitor) OnStats(fn func(Stats)) func() {
	return m.onStats.subscribe(fn)
}
