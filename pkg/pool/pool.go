package pool

import (
	"sync"

	"go.uber.org/zap"
)

// Factory constructs a new object in its default state. It is called when
// the pool has no idle object to hand out and when pre-warming.
type Factory[T any] func() T

// ResetFunc mutates obj in place into a fully initialized, caller-ready
// state equivalent to fresh construction with args. It must not allocate a
// replacement object and must not leave any field holding a value from the
// object's previous use.
type ResetFunc[T any] func(obj T, args ...any)

// Stats is a point-in-time snapshot of pool statistics. Every call to
// Pool.Stats returns a fresh copy.
type Stats struct {
	// PoolSize is the number of idle objects ready for reuse
	PoolSize int `json:"pool_size"`
	// ActiveCount is the number of objects currently issued
	ActiveCount int `json:"active_count"`
	// TotalCreated counts objects issued for the first time
	TotalCreated int64 `json:"total_created"`
	// TotalReused counts issues of previously released objects
	TotalReused int64 `json:"total_reused"`
	// ReuseRatio is TotalReused/TotalCreated, 0 when nothing was created
	ReuseRatio float64 `json:"reuse_ratio"`
	// MaxSize is the current idle capacity
	MaxSize int `json:"max_size"`
	// HighWaterMark is the largest ActiveCount observed
	HighWaterMark int `json:"high_water_mark"`
	// Discarded counts releases dropped because the pool was full
	Discarded int64 `json:"discarded"`
}

// slot is an idle object plus whether it has ever been issued. Pre-warmed
// objects have not, so their first issue counts as a creation.
type slot[T any] struct {
	obj    T
	issued bool
}

// Pool is a bounded stack of reusable objects of one kind.
//
// Idle objects are handed out most-recently-released first, which keeps hot
// objects hot. Every issued object is tracked in an active set so that
// double releases and releases of foreign objects are ignored instead of
// corrupting the statistics. The idle stack never grows past MaxSize:
// releases into a full pool drop the object.
//
// Pool is meant to be driven from a single goroutine (the game loop). Its
// methods still take a mutex so that stats can be scraped concurrently.
// Factory and reset functions run under that mutex and must not call back
// into the pool.
type Pool[T comparable] struct {
	mu          sync.Mutex
	factory     Factory[T]
	reset       ResetFunc[T]
	available   []slot[T]
	active      map[T]struct{}
	initialSize int
	maxSize     int
	stats       struct {
		created   int64
		reused    int64
		discarded int64
		highWater int
	}
	logger *zap.Logger
}

// Option configures optional pool and manager behavior.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report caller misuse.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a pool and pre-populates it with initialSize objects built by
// factory. reset may be nil, in which case objects are handed out as-is.
//
// Parameters:
//   - factory: constructs default-state objects, must not be nil
//   - reset: optional in-place initializer applied on every Acquire
//   - initialSize: number of objects to pre-warm
//   - maxSize: maximum number of idle objects retained; values <= 0 fall
//     back to initialSize (and at least 1)
//
// Example:
//
//	particles := pool.New(
//	    func() *Particle { return &Particle{} },
//	    func(p *Particle, args ...any) { p.Reset(args...) },
//	    50, 300,
//	)
//	p := particles.Acquire(x, y)
//	defer particles.Release(p)
func New[T comparable](factory Factory[T], reset ResetFunc[T], initialSize, maxSize int, opts ...Option) *Pool[T] {
	if factory == nil {
		panic("pool: nil factory")
	}
	if initialSize < 0 {
		initialSize = 0
	}
	if maxSize <= 0 {
		maxSize = initialSize
	}
	if maxSize <= 0 {
		maxSize = 1
	}

	o := buildOptions(opts)
	p := &Pool[T]{
		factory:     factory,
		reset:       reset,
		available:   make([]slot[T], 0, maxSize),
		active:      make(map[T]struct{}, maxSize),
		initialSize: initialSize,
		maxSize:     maxSize,
		logger:      o.logger,
	}
	p.PreWarm(initialSize)
	return p
}

// Acquire hands out an object in a fully reset state. The most recently
// released idle object is preferred; when none is idle the factory builds a
// new one. args are passed to the reset function unchanged.
//
// A panicking factory or reset function propagates to the caller.
func (p *Pool[T]) Acquire(args ...any) T {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		obj    T
		reused bool
	)
	if n := len(p.available); n > 0 {
		s := p.available[n-1]
		p.available[n-1] = slot[T]{}
		p.available = p.available[:n-1]
		obj, reused = s.obj, s.issued
	} else {
		obj = p.factory()
	}

	if p.reset != nil {
		p.reset(obj, args...)
	}

	if reused {
		p.stats.reused++
	} else {
		p.stats.created++
	}
	p.active[obj] = struct{}{}
	if len(p.active) > p.stats.highWater {
		p.stats.highWater = len(p.active)
	}
	return obj
}

// Release returns obj to the pool. Objects that are not currently issued by
// this pool are ignored. When the idle stack is already at MaxSize the
// object is dropped instead of retained.
func (p *Pool[T]) Release(obj T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked(obj)
}

// ReleaseAll releases every object in objs. Order is not significant.
func (p *Pool[T]) ReleaseAll(objs []T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, obj := range objs {
		p.releaseLocked(obj)
	}
}

func (p *Pool[T]) releaseLocked(obj T) {
	if _, ok := p.active[obj]; !ok {
		p.logger.Debug("release of object not issued by pool ignored",
			zap.Int("active", len(p.active)))
		return
	}
	delete(p.active, obj)

	if len(p.available) >= p.maxSize {
		p.stats.discarded++
		return
	}
	p.available = append(p.available, slot[T]{obj: obj, issued: true})
}

// Resize changes the idle capacity. If more objects are idle than the new
// maximum allows, the oldest idle objects are dropped. Non-positive sizes
// are ignored.
func (p *Pool[T]) Resize(maxSize int) {
	if maxSize <= 0 {
		p.logger.Debug("ignoring non-positive pool size", zap.Int("max_size", maxSize))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maxSize = maxSize
	if excess := len(p.available) - maxSize; excess > 0 {
		n := copy(p.available, p.available[excess:])
		clear(p.available[n:])
		p.available = p.available[:n]
	}
}

// PreWarm constructs up to count idle objects, never exceeding MaxSize, and
// returns how many were built.
func (p *Pool[T]) PreWarm(count int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	room := p.maxSize - len(p.available)
	if count > room {
		count = room
	}
	for i := 0; i < count; i++ {
		p.available = append(p.available, slot[T]{obj: p.factory()})
	}
	if count < 0 {
		return 0
	}
	return count
}

// Stats returns a snapshot of the pool statistics.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		PoolSize:      len(p.available),
		ActiveCount:   len(p.active),
		TotalCreated:  p.stats.created,
		TotalReused:   p.stats.reused,
		MaxSize:       p.maxSize,
		HighWaterMark: p.stats.highWater,
		Discarded:     p.stats.discarded,
	}
	if s.TotalCreated > 0 {
		s.ReuseRatio = float64(s.TotalReused) / float64(s.TotalCreated)
	}
	return s
}

// IsHealthy reports whether the pool reuses more objects than it creates.
// It is a diagnostic signal, not a control input.
func (p *Pool[T]) IsHealthy() bool {
	return p.Stats().ReuseRatio > 0.5
}

// MaxSize returns the current idle capacity.
func (p *Pool[T]) MaxSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSize
}

// Clear drops every idle object, forgets every issued object and zeroes all
// counters. Objects still held by callers are no longer tracked, so
// releasing them afterwards is a no-op.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.available)
	p.available = p.available[:0]
	p.active = make(map[T]struct{}, p.maxSize)
	p.stats.created = 0
	p.stats.reused = 0
	p.stats.discarded = 0
	p.stats.highWater = 0
}

func (p *Pool[T]) acquireAny(args ...any) any {
	return p.Acquire(args...)
}

func (p *Pool[T]) releaseAny(obj any) bool {
	typed, ok := obj.(T)
	if !ok {
		return false
	}
	p.Release(typed)
	return true
}
