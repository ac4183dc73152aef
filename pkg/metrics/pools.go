package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

// PoolCollector reports every pool of a manager at scrape time.
type PoolCollector struct {
	manager *pool.Manager

	idle      *prometheus.Desc
	active    *prometheus.Desc
	maxSize   *prometheus.Desc
	highWater *prometheus.Desc
	created   *prometheus.Desc
	reused    *prometheus.Desc
	discarded *prometheus.Desc
	ratio     *prometheus.Desc
}

// NewPoolCollector creates a collector for m. Register it on a registry.
func NewPoolCollector(namespace string, m *pool.Manager) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", name), help, []string{"pool"}, nil)
	}
	return &PoolCollector{
		manager:   m,
		idle:      desc("idle", "Idle objects ready for reuse"),
		active:    desc("active", "Objects currently issued"),
		maxSize:   desc("max_size", "Idle capacity"),
		highWater: desc("high_water_mark", "Largest number of objects issued at once"),
		created:   desc("created_total", "Objects issued for the first time"),
		reused:    desc("reused_total", "Issues of previously released objects"),
		discarded: desc("discarded_total", "Releases dropped because the pool was full"),
		ratio:     desc("reuse_ratio", "Reused over created"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.idle
	ch <- c.active
	ch <- c.maxSize
	ch <- c.highWater
	ch <- c.created
	ch <- c.reused
	ch <- c.discarded
	ch <- c.ratio
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for name, s := range c.manager.AllStats() {
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.PoolSize), name)
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.ActiveCount), name)
		ch <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(s.MaxSize), name)
		ch <- prometheus.MustNewConstMetric(c.highWater, prometheus.GaugeValue, float64(s.HighWaterMark), name)
		ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(s.TotalCreated), name)
		ch <- prometheus.MustNewConstMetric(c.reused, prometheus.CounterValue, float64(s.TotalReused), name)
		ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded), name)
		ch <- prometheus.MustNewConstMetric(c.ratio, prometheus.GaugeValue, s.ReuseRatio, name)
	}
}
