// Package performance provides performance benchmarks
package performance

import (
	"math/rand"
	"testing"
	"time"
)

// BenchmarkUpdate measures the per-frame cost of the monitor.
func BenchmarkUpdate(b *testing.B) {
	b.Run("Steady", func(b *testing.B) {
		m := NewMonitor(DefaultConfig())
		var clock time.Duration

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			clock += frame60
			m.Update(clock)
		}
	})

	b.Run("Jittery", func(b *testing.B) {
		m := NewMonitor(DefaultConfig())
		rng := rand.New(rand.NewSource(1))
		var clock time.Duration

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			clock += time.Duration(10+rng.Intn(40)) * time.Millisecond
			m.Update(clock)
		}
	})

	b.Run("WithSubscribers", func(b *testing.B) {
		m := NewMonitor(DefaultConfig())
		var frames int64
		m.OnStats(func(s Stats) { frames = s.TotalFrames })
		m.OnFrameDrop(func(FrameDrop) {})
		m.OnLevelChange(func(LevelChange) {})
		var clock time.Duration

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			clock += frame60
			m.Update(clock)
		}
		_ = frames
	})
}

// BenchmarkReport measures snapshot cost for the debug endpoint.
func BenchmarkReport(b *testing.B) {
	m := NewMonitor(DefaultConfig())
	var clock time.Duration
	for i := 0; i < 200; i++ {
		clock += frame60
		m.Update(clock)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Report()
	}
}
