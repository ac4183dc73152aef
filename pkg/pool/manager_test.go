package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestManager(t *testing.T) (*Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return NewManager(WithLogger(zap.New(core))), logs
}

func TestManagerCreateAndGet(t *testing.T) {
	m, _ := newTestManager(t)
	built := 0
	CreatePool(m, "items", counterFactory(&built), resetItem, 2, 4)

	it, ok := Get[*item](m, "items", 42)
	require.True(t, ok)
	assert.Equal(t, 42, it.ID)

	m.Release("items", it)
	again, ok := Get[*item](m, "items", 1)
	require.True(t, ok)
	assert.Same(t, it, again)
}

func TestManagerUnknownName(t *testing.T) {
	m, logs := newTestManager(t)

	it, ok := Get[*item](m, "nope")
	assert.False(t, ok)
	assert.Nil(t, it)

	obj, ok := m.Acquire("nope")
	assert.False(t, ok)
	assert.Nil(t, obj)

	assert.NotPanics(t, func() { m.Release("nope", &item{}) })
	assert.NotContains(t, m.AllStats(), "nope")
	assert.Equal(t, 3, logs.Len())
}

func TestManagerWrongType(t *testing.T) {
	m, logs := newTestManager(t)
	built := 0
	CreatePool(m, "items", counterFactory(&built), resetItem, 0, 4)

	_, ok := Get[*string](m, "items")
	assert.False(t, ok)

	m.Release("items", "not an item")
	assert.Equal(t, 1, logs.FilterMessage("release of foreign object type ignored").Len())
}

func TestManagerUntypedAcquire(t *testing.T) {
	m, _ := newTestManager(t)
	built := 0
	CreatePool(m, "items", counterFactory(&built), resetItem, 0, 4)

	obj, ok := m.Acquire("items", 5)
	require.True(t, ok)
	it, ok := obj.(*item)
	require.True(t, ok)
	assert.Equal(t, 5, it.ID)

	m.Release("items", obj)
	assert.Equal(t, 1, m.AllStats()["items"].PoolSize)
}

func TestManagerRegisterReplaces(t *testing.T) {
	m, logs := newTestManager(t)
	built := 0
	first := CreatePool(m, "items", counterFactory(&built), resetItem, 1, 4)
	second := CreatePool(m, "items", counterFactory(&built), resetItem, 3, 4)

	p, ok := Lookup[*item](m, "items")
	require.True(t, ok)
	assert.Same(t, second, p)
	assert.NotSame(t, first, p)
	assert.Equal(t, []string{"items"}, m.Names())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, logs.FilterMessage("replacing registered pool").Len())
}

func TestManagerAllStatsAndClear(t *testing.T) {
	m, _ := newTestManager(t)
	built := 0
	CreatePool(m, "a", counterFactory(&built), resetItem, 2, 4)
	CreatePool(m, "b", counterFactory(&built), resetItem, 0, 4)

	a, _ := Get[*item](m, "a")
	m.Release("a", a)
	Get[*item](m, "b")

	stats := m.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["a"].PoolSize)
	assert.Equal(t, 1, stats["b"].ActiveCount)

	m.ClearAll()
	for name, s := range m.AllStats() {
		assert.Equal(t, Stats{MaxSize: 4}, s, name)
	}
	assert.Equal(t, []string{"a", "b"}, m.Names())
}

func TestManagerAllHealthy(t *testing.T) {
	m, _ := newTestManager(t)
	assert.True(t, m.AllHealthy())

	built := 0
	p := CreatePool(m, "a", counterFactory(&built), resetItem, 0, 4)
	assert.False(t, m.AllHealthy())

	it := p.Acquire()
	for i := 0; i < 2; i++ {
		p.Release(it)
		it = p.Acquire()
	}
	assert.True(t, m.AllHealthy())
}

func TestManagerString(t *testing.T) {
	m, _ := newTestManager(t)
	built := 0
	CreatePool(m, "particles", counterFactory(&built), resetItem, 3, 6)

	out := m.String()
	assert.Contains(t, out, "particles")
	assert.Contains(t, out, "created")
}
