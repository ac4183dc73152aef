// Package metrics exposes Burger Drop's frame statistics and pool usage as
// Prometheus metrics.
//
// # Overview
//
// The metrics package provides:
//   - a Collector fed by the performance monitor's events
//   - a PoolCollector that reads pool statistics at scrape time
//   - small timing helpers used by the benchmark command
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	c := metrics.New(reg, "burgerdrop")
//	detach := c.Attach(monitor)
//	defer detach()
//	reg.MustRegister(metrics.NewPoolCollector("burgerdrop", manager))
//
// Every metric is registered on the registerer passed in, never on the
// global default registry, so several games can run in one process (tests,
// benchmarks).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/burgerdrop/pkg/performance"
)

// Collector records frame and quality metrics.
type Collector struct {
	frameTime     prometheus.Histogram   // Frame duration distribution
	fps           *prometheus.GaugeVec   // FPS by kind (current/average/min/max)
	droppedFrames prometheus.Gauge       // Dropped frames in the current window
	level         prometheus.Gauge       // Committed performance level, 0 is high
	levelChanges  *prometheus.CounterVec // Level transitions by from/to
	frameDrops    prometheus.Counter     // Frames slower than twice the target
	orders        *prometheus.CounterVec // Orders by outcome
	score         prometheus.Gauge       // Current score
}

// New creates a collector and registers its metrics on reg.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		frameTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_time_seconds",
			Help:      "Duration between consecutive frames",
			Buckets: []float64{
				0.004, // 250 FPS
				0.008,
				0.0167, // 60 FPS
				0.025,  // drop threshold at 60 FPS
				0.0334, // 30 FPS
				0.05,
				0.1,
				0.25,
			},
		}),
		fps: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fps",
			Help:      "Frames per second over the sampling window, clamped to the target",
		}, []string{"kind"}),
		droppedFrames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dropped_frames",
			Help:      "Frames in the sampling window slower than 1.5x the target frame time",
		}),
		level: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "performance_level",
			Help:      "Committed performance level (0=high, 1=medium, 2=low, 3=critical)",
		}),
		levelChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "performance_level_changes_total",
			Help:      "Committed performance level changes",
		}, []string{"from", "to"}),
		frameDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_drops_total",
			Help:      "Frames slower than twice the target frame time",
		}),
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Customer orders by outcome",
		}, []string{"outcome"}),
		score: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Score of the current session",
		}),
	}
}

// ObserveStats records one monitor statistics snapshot.
func (c *Collector) ObserveStats(s performance.Stats) {
	if s.TotalFrames > 0 {
		c.frameTime.Observe(s.FrameTime.Seconds())
	}
	c.fps.WithLabelValues("current").Set(s.CurrentFPS)
	c.fps.WithLabelValues("average").Set(s.AverageFPS)
	c.fps.WithLabelValues("min").Set(s.MinFPS)
	c.fps.WithLabelValues("max").Set(s.MaxFPS)
	c.droppedFrames.Set(float64(s.DroppedFrames))
}

// ObserveLevelChange records a committed level change.
func (c *Collector) ObserveLevelChange(e performance.LevelChange) {
	c.levelChanges.WithLabelValues(e.Old.String(), e.New.String()).Inc()
	c.level.Set(float64(e.New))
}

// ObserveFrameDrop counts a slow frame.
func (c *Collector) ObserveFrameDrop(performance.FrameDrop) {
	c.frameDrops.Inc()
}

// ObserveOrder counts a finished order. outcome is "completed" or "expired".
func (c *Collector) ObserveOrder(outcome string) {
	c.orders.WithLabelValues(outcome).Inc()
}

// SetScore records the current score.
func (c *Collector) SetScore(score int) {
	c.score.Set(float64(score))
}

// Attach subscribes the collector to m and returns a function detaching it.
func (c *Collector) Attach(m *performance.Monitor) func() {
	c.level.Set(float64(m.Level()))
	stops := []func(){
		m.OnStats(c.ObserveStats),
		m.OnLevelChange(c.ObserveLevelChange),
		m.OnFrameDrop(c.ObserveFrameDrop),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
