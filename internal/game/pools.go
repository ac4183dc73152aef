package game

import (
	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

// Pool names. Every hot-path spawn goes through the manager with one of
// these names and every removal releases to the same name.
const (
	PoolParticles   = "particles"
	PoolCelebration = "celebration"
	PoolIngredients = "ingredients"
	PoolPowerUps    = "powerups"
)

// RegisterPools creates the four entity pools on m.
func RegisterPools(m *pool.Manager, sizes config.PoolsConfig) {
	pool.CreatePool(m, PoolParticles, newParticle, resetParticle, sizes.Particles.Initial, sizes.Particles.Max)
	pool.CreatePool(m, PoolCelebration, newParticle, resetParticle, sizes.Celebration.Initial, sizes.Celebration.Max)
	pool.CreatePool(m, PoolIngredients, newIngredient, resetIngredient, sizes.Ingredients.Initial, sizes.Ingredients.Max)
	pool.CreatePool(m, PoolPowerUps, newPowerUp, resetPowerUp, sizes.PowerUps.Initial, sizes.PowerUps.Max)
}

// ParticleBudgets returns the pool capacities for a particle budget:
// 1.5x for general particles and 0.5x for celebration bursts.
func ParticleBudgets(maxParticles int) (particles, celebration int) {
	particles = maxParticles * 3 / 2
	celebration = maxParticles / 2
	if particles < 1 {
		particles = 1
	}
	if celebration < 1 {
		celebration = 1
	}
	return particles, celebration
}

// Features is the renderer-facing subset of quality settings.
type Features struct {
	Shadows        bool
	Textures       bool
	Effects        bool
	ParticleDetail performance.ParticleDetail
	RenderScale    float64
}

// FeaturesFrom projects quality settings onto renderer features.
func FeaturesFrom(s performance.QualitySettings) Features {
	return Features{
		Shadows:        s.EnableShadows,
		Textures:       s.EnableTextures,
		Effects:        s.EnableEffects,
		ParticleDetail: s.ParticleDetail,
		RenderScale:    s.RenderScale,
	}
}

// burstScale scales burst sizes by particle detail.
func burstScale(d performance.ParticleDetail) float64 {
	switch d {
	case performance.DetailHigh:
		return 1
	case performance.DetailMedium:
		return 0.75
	case performance.DetailLow:
		return 0.5
	default:
		return 0.25
	}
}
