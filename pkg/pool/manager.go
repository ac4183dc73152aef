package pool

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Managed is the type-erased view of a Pool held by a Manager. It is
// implemented by *Pool[T] only.
type Managed interface {
	Stats() Stats
	IsHealthy() bool
	Resize(maxSize int)
	PreWarm(count int) int
	MaxSize() int
	Clear()

	acquireAny(args ...any) any
	releaseAny(obj any) bool
}

// Manager is a named registry of pools. It routes acquire and release calls
// by pool name and aggregates statistics across every registered pool.
//
// Unknown names never panic: Get reports a miss and Release does nothing, so
// a frame loop can use a pool defensively while a feature is being rolled
// out.
type Manager struct {
	mu     sync.RWMutex
	pools  map[string]Managed
	order  []string
	logger *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	o := buildOptions(opts)
	return &Manager{
		pools:  make(map[string]Managed),
		logger: o.logger,
	}
}

// CreatePool constructs a pool and registers it under name. Registering an
// existing name replaces the previous pool.
//
// Example:
//
//	m := pool.NewManager()
//	pool.CreatePool(m, "particles", newParticle, resetParticle, 50, 300)
//	p, ok := pool.Get[*Particle](m, "particles", x, y)
func CreatePool[T comparable](m *Manager, name string, factory Factory[T], reset ResetFunc[T], initialSize, maxSize int) *Pool[T] {
	p := New(factory, reset, initialSize, maxSize, WithLogger(m.logger.With(zap.String("pool", name))))
	m.Register(name, p)
	return p
}

// Register adds p under name, replacing any pool already registered there.
func (m *Manager) Register(name string, p Managed) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pools[name]; exists {
		m.logger.Warn("replacing registered pool", zap.String("pool", name))
	} else {
		m.order = append(m.order, name)
	}
	m.pools[name] = p
}

// Pool returns the type-erased pool registered under name.
func (m *Manager) Pool(name string) (Managed, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[name]
	return p, ok
}

// Lookup returns the pool registered under name if it holds objects of
// type T.
func Lookup[T comparable](m *Manager, name string) (*Pool[T], bool) {
	p, ok := m.Pool(name)
	if !ok {
		return nil, false
	}
	typed, ok := p.(*Pool[T])
	return typed, ok
}

// Get acquires an object of type T from the named pool, passing args to the
// pool's reset function. It returns false, and the zero value, when the
// name is not registered or the pool holds a different type.
func Get[T comparable](m *Manager, name string, args ...any) (T, bool) {
	p, ok := Lookup[T](m, name)
	if !ok {
		m.logger.Debug("get from unknown pool", zap.String("pool", name))
		var zero T
		return zero, false
	}
	return p.Acquire(args...), true
}

// Acquire is the untyped form of Get.
func (m *Manager) Acquire(name string, args ...any) (any, bool) {
	p, ok := m.Pool(name)
	if !ok {
		m.logger.Debug("acquire from unknown pool", zap.String("pool", name))
		return nil, false
	}
	return p.acquireAny(args...), true
}

// Release returns obj to the named pool. Unknown names and objects of the
// wrong type are ignored.
func (m *Manager) Release(name string, obj any) {
	p, ok := m.Pool(name)
	if !ok {
		m.logger.Debug("release to unknown pool", zap.String("pool", name))
		return
	}
	if !p.releaseAny(obj) {
		m.logger.Debug("release of foreign object type ignored",
			zap.String("pool", name),
			zap.String("type", fmt.Sprintf("%T", obj)))
	}
}

// AllStats returns a fresh snapshot of every pool's statistics keyed by name.
func (m *Manager) AllStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Stats, len(m.pools))
	for name, p := range m.pools {
		out[name] = p.Stats()
	}
	return out
}

// ClearAll clears every registered pool. Registrations are kept.
func (m *Manager) ClearAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pools {
		p.Clear()
	}
}

// AllHealthy reports whether every registered pool is healthy. A manager
// with no pools is healthy.
func (m *Manager) AllHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pools {
		if !p.IsHealthy() {
			return false
		}
	}
	return true
}

// Names returns registered pool names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Len returns the number of registered pools.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}

// String renders a debug table of every pool in registration order.
func (m *Manager) String() string {
	var b strings.Builder
	b.WriteString("pool            idle  active  max   created  reused  ratio\n")
	for _, name := range m.Names() {
		p, ok := m.Pool(name)
		if !ok {
			continue
		}
		s := p.Stats()
		fmt.Fprintf(&b, "%-15s %-5d %-7d %-5d %-8d %-7d %.2f\n",
			name, s.PoolSize, s.ActiveCount, s.MaxSize, s.TotalCreated, s.TotalReused, s.ReuseRatio)
	}
	return b.String()
}
