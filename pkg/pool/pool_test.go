package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    int
	Tags  []string
	Score float64
}

func counterFactory(n *int) Factory[*item] {
	return func() *item {
		*n++
		return &item{}
	}
}

func resetItem(it *item, args ...any) {
	it.Tags = it.Tags[:0]
	it.Score = 0
	it.ID = 0
	if len(args) > 0 {
		it.ID, _ = args[0].(int)
	}
}

func TestNewPreWarms(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 5, 10)

	s := p.Stats()
	assert.Equal(t, 5, built)
	assert.Equal(t, 5, s.PoolSize)
	assert.Equal(t, 0, s.ActiveCount)
	assert.Equal(t, int64(0), s.TotalCreated)
	assert.Equal(t, 10, s.MaxSize)
}

func TestNewMaxSizeFallback(t *testing.T) {
	built := 0
	assert.Equal(t, 4, New(counterFactory(&built), nil, 4, 0).MaxSize())
	assert.Equal(t, 1, New(counterFactory(&built), nil, 0, -3).MaxSize())
}

func TestNewNilFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { New[*item](nil, nil, 1, 1) })
}

func TestReleaseThenAcquireReusesSameObject(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 4)

	a := p.Acquire(1)
	p.Release(a)
	b := p.Acquire(2)

	assert.Same(t, a, b)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, 1, built)

	s := p.Stats()
	assert.Equal(t, int64(1), s.TotalCreated)
	assert.Equal(t, int64(1), s.TotalReused)
}

func TestAcquireIsLastInFirstOut(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 4)

	a, b := p.Acquire(), p.Acquire()
	p.Release(a)
	p.Release(b)

	assert.Same(t, b, p.Acquire())
	assert.Same(t, a, p.Acquire())
}

func TestResetClearsPreviousUse(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 4)

	a := p.Acquire(7)
	a.Tags = append(a.Tags, "cheese", "lettuce")
	a.Score = 99
	p.Release(a)

	b := p.Acquire(8)
	require.Same(t, a, b)
	assert.Empty(t, b.Tags)
	assert.Zero(t, b.Score)
	assert.Equal(t, 8, b.ID)
}

func TestIdleCapacityIsBounded(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 5, 10)

	issued := make([]*item, 0, 12)
	for i := 0; i < 12; i++ {
		issued = append(issued, p.Acquire())
	}

	s := p.Stats()
	assert.Equal(t, int64(12), s.TotalCreated)
	assert.Equal(t, int64(0), s.TotalReused)
	assert.Equal(t, 12, s.ActiveCount)
	assert.Equal(t, 0, s.PoolSize)
	assert.Equal(t, 12, s.HighWaterMark)

	for _, it := range issued {
		p.Release(it)
	}

	s = p.Stats()
	assert.Equal(t, 10, s.PoolSize)
	assert.Equal(t, 0, s.ActiveCount)
	assert.Equal(t, int64(2), s.Discarded)
}

func TestReleaseIgnoresForeignAndDoubleRelease(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 4)

	a := p.Acquire()
	p.Release(a)
	p.Release(a)
	p.Release(&item{})

	s := p.Stats()
	assert.Equal(t, 1, s.PoolSize)
	assert.Equal(t, 0, s.ActiveCount)
}

func TestReleaseAll(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 8)

	batch := []*item{p.Acquire(), p.Acquire(), p.Acquire()}
	p.ReleaseAll(batch)

	s := p.Stats()
	assert.Equal(t, 3, s.PoolSize)
	assert.Equal(t, 0, s.ActiveCount)
}

func TestResizeTrimsOldestIdle(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 6)

	objs := []*item{p.Acquire(), p.Acquire(), p.Acquire(), p.Acquire()}
	p.ReleaseAll(objs)

	p.Resize(2)
	assert.Equal(t, 2, p.MaxSize())
	assert.Equal(t, 2, p.Stats().PoolSize)

	// the two most recently released survive
	assert.Same(t, objs[3], p.Acquire())
	assert.Same(t, objs[2], p.Acquire())

	p.Resize(0)
	assert.Equal(t, 2, p.MaxSize())
}

func TestResizeGrowDoesNotBuild(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 2, 2)
	p.Resize(50)

	assert.Equal(t, 2, built)
	assert.Equal(t, 2, p.Stats().PoolSize)
}

func TestPreWarmRespectsCapacity(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 2, 5)

	assert.Equal(t, 3, p.PreWarm(10))
	assert.Equal(t, 0, p.PreWarm(1))
	assert.Equal(t, 0, p.PreWarm(-1))
	assert.Equal(t, 5, p.Stats().PoolSize)
}

func TestClearIsIdempotent(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 3, 5)
	held := p.Acquire()
	p.Release(p.Acquire())
	p.Acquire()

	p.Clear()
	first := p.Stats()
	p.Clear()
	second := p.Stats()

	assert.Equal(t, first, second)
	assert.Equal(t, Stats{MaxSize: 5}, first)

	p.Release(held)
	assert.Equal(t, 0, p.Stats().PoolSize)
}

func TestHealth(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 0, 4)
	assert.False(t, p.IsHealthy())

	a := p.Acquire()
	for i := 0; i < 3; i++ {
		p.Release(a)
		a = p.Acquire()
	}

	s := p.Stats()
	assert.InDelta(t, 3.0, s.ReuseRatio, 1e-9)
	assert.True(t, p.IsHealthy())
}

func TestStatsReturnsCopy(t *testing.T) {
	built := 0
	p := New(counterFactory(&built), resetItem, 1, 2)

	s := p.Stats()
	s.PoolSize = 100
	assert.Equal(t, 1, p.Stats().PoolSize)
}

func BenchmarkAcquireRelease(b *testing.B) {
	built := 0
	p := New(counterFactory(&built), resetItem, 64, 64)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Release(p.Acquire(i))
	}
}
