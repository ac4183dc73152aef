// Package pool implements bounded, type-safe object pools for the frame loop
// and a named registry that routes acquire and release calls by pool name.
//
// Architecture
//
// A Pool[T] keeps a stack of idle objects plus the set of objects it has
// issued. Acquire pops the most recently released object (or builds a new one
// with the factory) and runs the reset function on it, so callers always see
// a fully initialized object. Release pushes the object back unless the idle
// stack is already at MaxSize, in which case the object is dropped for the
// garbage collector.
//
// Core Types:
//
//   - Pool[T]: generic pool for any comparable T, usually a pointer type
//   - Manager: named registry of pools with aggregate statistics
//   - Stats: point-in-time snapshot of a single pool
//
// Usage Patterns
//
// Creating a pool directly:
//
//	particles := pool.New(
//		func() *Particle { return &Particle{} },
//		func(p *Particle, args ...any) { p.Reset(args...) },
//		50, 300,
//	)
//	p := particles.Acquire(x, y, color)
//	// ... later
//	particles.Release(p)
//
// Registering pools with a manager:
//
//	m := pool.NewManager(pool.WithLogger(log))
//	pool.CreatePool(m, "particles", newParticle, resetParticle, 50, 300)
//	if p, ok := pool.Get[*Particle](m, "particles", x, y, color); ok {
//		defer m.Release("particles", p)
//	}
//
// Statistics
//
// Every pool counts objects issued for the first time (TotalCreated) and
// re-issues of released objects (TotalReused). Pre-warmed objects count as
// created on their first issue. ReuseRatio is TotalReused/TotalCreated and a
// pool is considered healthy above 0.5.
//
// Misuse
//
// Releasing an object the pool did not issue, releasing twice, or using an
// unknown pool name is ignored and logged at debug level. None of these
// operations return errors.
package pool
