package game

import (
	"time"
)

// Kind is an ingredient type.
type Kind uint8

const (
	BunBottom Kind = iota
	Patty
	Cheese
	Lettuce
	Tomato
	Onion
	Pickle
	Bacon
	BunTop
)

// Fillings are the kinds that go between the buns.
var Fillings = []Kind{Patty, Cheese, Lettuce, Tomato, Onion, Pickle, Bacon}

var kindNames = [...]string{"bun-bottom", "patty", "cheese", "lettuce", "tomato", "onion", "pickle", "bacon", "bun-top"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Ingredient is a falling, clickable item. Ingredients are pooled.
type Ingredient struct {
	Kind  Kind
	X, Y  float64
	Speed float64 // cells per second

	pool string
}

// Pool returns the name of the pool the ingredient came from.
func (i *Ingredient) Pool() string { return i.pool }

func newIngredient() *Ingredient { return &Ingredient{} }

// resetIngredient args: kind Kind, x float64, speed float64.
func resetIngredient(i *Ingredient, args ...any) {
	*i = Ingredient{pool: PoolIngredients}
	if k, ok := arg[Kind](args, 0); ok {
		i.Kind = k
	}
	i.X, _ = arg[float64](args, 1)
	i.Speed, _ = arg[float64](args, 2)
}

// Particle is a cosmetic spark. Particles come from either the general or
// the celebration pool.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Life    time.Duration
	MaxLife time.Duration
	Kind    Kind // colour hint

	pool string
}

// Pool returns the name of the pool the particle came from.
func (p *Particle) Pool() string { return p.pool }

// Fade is the remaining life in [0,1].
func (p *Particle) Fade() float64 {
	if p.MaxLife <= 0 {
		return 0
	}
	return float64(p.Life) / float64(p.MaxLife)
}

func newParticle() *Particle { return &Particle{} }

// resetParticle args: pool string, x, y, vx, vy float64, life time.Duration, kind Kind.
func resetParticle(p *Particle, args ...any) {
	*p = Particle{}
	p.pool, _ = arg[string](args, 0)
	p.X, _ = arg[float64](args, 1)
	p.Y, _ = arg[float64](args, 2)
	p.VX, _ = arg[float64](args, 3)
	p.VY, _ = arg[float64](args, 4)
	p.Life, _ = arg[time.Duration](args, 5)
	p.MaxLife = p.Life
	p.Kind, _ = arg[Kind](args, 6)
}

// PowerUpKind selects the effect of a power-up.
type PowerUpKind uint8

const (
	// SlowTime halves fall speed and the order clock.
	SlowTime PowerUpKind = iota
	// DoublePoints doubles every score gain.
	DoublePoints
)

func (k PowerUpKind) String() string {
	if k == SlowTime {
		return "slow-time"
	}
	return "double-points"
}

// Duration is how long the effect lasts once collected.
func (k PowerUpKind) Duration() time.Duration {
	if k == SlowTime {
		return 5 * time.Second
	}
	return 8 * time.Second
}

// PowerUp is a falling pickup.
type PowerUp struct {
	Kind  PowerUpKind
	X, Y  float64
	Speed float64

	pool string
}

// Pool returns the name of the pool the power-up came from.
func (p *PowerUp) Pool() string { return p.pool }

func newPowerUp() *PowerUp { return &PowerUp{} }

// resetPowerUp args: kind PowerUpKind, x, speed float64.
func resetPowerUp(p *PowerUp, args ...any) {
	*p = PowerUp{pool: PoolPowerUps}
	p.Kind, _ = arg[PowerUpKind](args, 0)
	p.X, _ = arg[float64](args, 1)
	p.Speed, _ = arg[float64](args, 2)
}

// arg returns args[i] as T. Missing or mistyped arguments yield the zero
// value so a reset never panics mid-frame.
func arg[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, false
	}
	return v, true
}
