// Package game implements the Burger Drop rules and frame loop. Every
// short-lived entity comes from a pool.Manager, and the performance monitor
// feeds quality settings back into pool capacities and renderer features.
package game

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

const (
	// MaxCombo caps the score multiplier built by consecutive hits.
	MaxCombo = 8
	// maxStep bounds the simulated time of a single tick.
	maxStep = 100 * time.Millisecond
	gravity = 14.0 // cells/s²
)

// Phase of a session.
type Phase int

const (
	Ready Phase = iota
	Playing
	Paused
	Over
)

func (p Phase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Over:
		return "over"
	default:
		return "ready"
	}
}

// InputKind classifies player input.
type InputKind int

const (
	InputClick InputKind = iota
	InputPause
	InputRestart
	InputQuit
)

// Input is one player action in playfield coordinates.
type Input struct {
	Kind InputKind
	X, Y float64
}

// Effect is a sound cue.
type Effect int

const (
	EffectCollect Effect = iota
	EffectMiss
	EffectOrderComplete
	EffectOrderExpired
	EffectPowerUp
	EffectGameOver
)

// Sound plays effects. Play must not block.
type Sound interface {
	Play(Effect)
}

// Renderer draws frames. Both methods are called from the loop goroutine.
type Renderer interface {
	SetFeatures(Features)
	Draw(*Frame)
}

// Frame is the read-only view handed to the renderer. Its slices alias
// game state and are only valid during Draw.
type Frame struct {
	Width, Height int
	Phase         Phase
	Ingredients   []*Ingredient
	Particles     []*Particle
	PowerUps      []*PowerUp
	Order         *Order
	Score         int
	Best          int
	Combo         int
	Lives         int
	SlowLeft      time.Duration
	DoubleLeft    time.Duration
	Level         performance.Level
	Stats         performance.Stats
}

// OrderResult describes a finished order.
type OrderResult struct {
	Outcome     string // "completed" or "expired"
	Ingredients int
	Points      int
}

// Result summarises a finished session.
type Result struct {
	Score    int
	Best     int
	NewBest  bool
	Orders   int
	Duration time.Duration
	Level    performance.Level
}

// Hooks observe gameplay. They run on the loop goroutine and must not block.
type Hooks struct {
	Order    func(OrderResult)
	Score    func(score int)
	GameOver func(Result)
}

// Status is a snapshot safe to read from any goroutine.
type Status struct {
	Phase       string        `json:"phase"`
	Score       int           `json:"score"`
	Best        int           `json:"best"`
	Combo       int           `json:"combo"`
	Lives       int           `json:"lives"`
	Orders      int           `json:"orders_completed"`
	Level       string        `json:"level"`
	Ingredients int           `json:"ingredients"`
	Particles   int           `json:"particles"`
	PowerUps    int           `json:"powerups"`
	SlowLeft    time.Duration `json:"slow_left"`
	DoubleLeft  time.Duration `json:"double_left"`
	Played      time.Duration `json:"played"`
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Game) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRenderer sets the renderer.
func WithRenderer(r Renderer) Option {
	return func(g *Game) { g.renderer = r }
}

// WithSound sets the sound sink.
func WithSound(s Sound) Option {
	return func(g *Game) { g.sound = s }
}

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithHooks sets gameplay observers.
func WithHooks(h Hooks) Option {
	return func(g *Game) { g.hooks = h }
}

// WithBestScore seeds the best score, usually from a high-score store.
func WithBestScore(best int) Option {
	return func(g *Game) { g.best = best }
}

// Game owns all gameplay state. Everything except Status is confined to
// the goroutine that calls Run (or Tick and HandleInput directly).
type Game struct {
	cfg      config.GameConfig
	sizes    config.PoolsConfig
	manager  *pool.Manager
	monitor  *performance.Monitor
	renderer Renderer
	sound    Sound
	hooks    Hooks
	logger   *zap.Logger
	rng      *rand.Rand

	quality     performance.QualitySettings
	pendingMu   sync.Mutex
	pending     *performance.QualitySettings
	unsubscribe func()

	phase    Phase
	anchored bool
	last     time.Duration
	played   time.Duration

	ingredients []*Ingredient
	particles   []*Particle
	powerUps    []*PowerUp
	order       *Order
	orderSeq    int

	score, best, combo, lives, completed int
	spawnTimer, spawnInterval            time.Duration
	slowLeft, doubleLeft                 time.Duration

	frame Frame

	statusMu sync.RWMutex
	status   Status
}

// New registers the entity pools on manager and subscribes to the
// monitor's level changes.
func New(cfg config.GameConfig, sizes config.PoolsConfig, manager *pool.Manager, monitor *performance.Monitor, opts ...Option) *Game {
	def := config.Default()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Game.Width, def.Game.Height
	}
	if cfg.Lives <= 0 {
		cfg.Lives = def.Game.Lives
	}
	if cfg.OrderTimeLimit <= 0 {
		cfg.OrderTimeLimit = def.Game.OrderTimeLimit
	}
	if cfg.SpawnInterval <= 0 {
		cfg.SpawnInterval = def.Game.SpawnInterval
	}
	if cfg.MinSpawnInterval <= 0 || cfg.MinSpawnInterval > cfg.SpawnInterval {
		cfg.MinSpawnInterval = cfg.SpawnInterval
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.Game.TickRate
	}
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	g := &Game{
		cfg:     cfg,
		sizes:   sizes,
		manager: manager,
		monitor: monitor,
		logger:  zap.NewNop(),
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		combo:   1,
		lives:   cfg.Lives,
		quality: monitor.QualitySettings(),
	}
	for _, opt := range opts {
		opt(g)
	}

	RegisterPools(manager, sizes)
	g.unsubscribe = monitor.OnLevelChange(g.onLevelChange)
	g.publish()
	return g
}

// Close unsubscribes from the monitor and clears every pool.
func (g *Game) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	g.manager.ClearAll()
}

// Start begins a fresh session: pools are cleared and pre-warmed, the
// monitor is reset and the monitor's current settings are applied.
func (g *Game) Start() {
	g.manager.ClearAll()
	g.prewarm()
	g.monitor.Reset()

	g.ingredients, g.particles, g.powerUps = nil, nil, nil
	g.score, g.combo, g.lives, g.completed = 0, 1, g.cfg.Lives, 0
	g.spawnInterval, g.spawnTimer = g.cfg.SpawnInterval, 0
	g.slowLeft, g.doubleLeft = 0, 0
	g.played, g.anchored = 0, false
	g.orderSeq = 0
	g.order = g.nextOrder()

	g.takePending()
	g.applyQuality(g.monitor.QualitySettings())
	g.phase = Playing

	g.logger.Info("game started",
		zap.String("level", g.monitor.Level().String()),
		zap.Int("lives", g.lives),
		zap.Int("order_size", len(g.order.Ingredients)))
	g.emitScore()
	g.publish()
}

// Restart is Start for a session that already ran.
func (g *Game) Restart() { g.Start() }

// Pause stops simulation and monitor sampling.
func (g *Game) Pause() {
	if g.phase != Playing {
		return
	}
	g.phase = Paused
	g.logger.Debug("game paused")
	g.publish()
}

// Resume continues a paused session. Frame history gathered before the
// pause is discarded and the reset level's settings are applied.
func (g *Game) Resume() {
	if g.phase != Paused {
		return
	}
	g.monitor.Reset()
	g.takePending()
	g.applyQuality(g.monitor.QualitySettings())
	g.anchored = false
	g.phase = Playing
	g.logger.Debug("game resumed")
	g.publish()
}

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// Status returns a snapshot of the session.
func (g *Game) Status() Status {
	g.statusMu.RLock()
	defer g.statusMu.RUnlock()
	return g.status
}

// Quality returns the settings currently applied.
func (g *Game) Quality() performance.QualitySettings { return g.quality }

// HandleInput applies one input. It returns false when the player quits.
func (g *Game) HandleInput(in Input) bool {
	switch in.Kind {
	case InputClick:
		if g.phase == Playing {
			g.click(in.X, in.Y)
		}
	case InputPause:
		if g.phase == Paused {
			g.Resume()
		} else {
			g.Pause()
		}
	case InputRestart:
		g.Restart()
	case InputQuit:
		return false
	}
	return true
}

// Tick advances the game to the monotonic timestamp now.
func (g *Game) Tick(now time.Duration) {
	if g.phase == Playing {
		g.monitor.Update(now)
	}
	if s, ok := g.takePending(); ok {
		g.applyQuality(s)
	}

	dt := g.advanceClock(now)
	if g.phase == Playing && dt > 0 {
		g.step(dt)
	}
	g.render()
	g.publish()
}

// Run starts a session if none is active and ticks at the configured rate
// until ctx is done or the player quits.
func (g *Game) Run(ctx context.Context, input <-chan Input) error {
	if g.phase == Ready {
		g.Start()
	}

	ticker := time.NewTicker(time.Second / time.Duration(g.cfg.TickRate))
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case in, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			if !g.HandleInput(in) {
				return nil
			}
		case <-ticker.C:
			g.Tick(time.Since(start))
		}
	}
}

func (g *Game) prewarm() {
	warm := map[string]int{
		PoolParticles:   g.sizes.Particles.Initial,
		PoolCelebration: g.sizes.Celebration.Initial,
		PoolIngredients: g.sizes.Ingredients.Initial,
		PoolPowerUps:    g.sizes.PowerUps.Initial,
	}
	for name, n := range warm {
		if p, ok := g.manager.Pool(name); ok {
			p.PreWarm(n)
		}
	}
}

// onLevelChange runs on whichever goroutine calls Monitor.SetLevel, so the
// settings are parked and applied by the next Tick.
func (g *Game) onLevelChange(e performance.LevelChange) {
	s := e.Settings
	g.pendingMu.Lock()
	g.pending = &s
	g.pendingMu.Unlock()
}

func (g *Game) takePending() (performance.QualitySettings, bool) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	if g.pending == nil {
		return performance.QualitySettings{}, false
	}
	s := *g.pending
	g.pending = nil
	return s, true
}

// applyQuality resizes the particle pools, trims live particles to the new
// budget and pushes renderer features.
func (g *Game) applyQuality(s performance.QualitySettings) {
	g.quality = s

	particles, celebration := ParticleBudgets(s.MaxParticles)
	if p, ok := g.manager.Pool(PoolParticles); ok {
		p.Resize(particles)
	}
	if p, ok := g.manager.Pool(PoolCelebration); ok {
		p.Resize(celebration)
	}
	trimmed := g.trimParticles(s.MaxParticles)

	if g.renderer != nil {
		g.renderer.SetFeatures(FeaturesFrom(s))
	}
	g.logger.Debug("quality applied",
		zap.Int("max_particles", s.MaxParticles),
		zap.Bool("effects", s.EnableEffects),
		zap.Int("trimmed", trimmed))
}

// trimParticles releases the oldest live particles above budget.
func (g *Game) trimParticles(budget int) int {
	if budget < 0 {
		budget = 0
	}
	excess := len(g.particles) - budget
	if excess <= 0 {
		return 0
	}
	for _, p := range g.particles[:excess] {
		g.manager.Release(p.pool, p)
	}
	n := copy(g.particles, g.particles[excess:])
	clear(g.particles[n:])
	g.particles = g.particles[:n]
	return excess
}

func (g *Game) advanceClock(now time.Duration) time.Duration {
	if !g.anchored || now < g.last {
		g.anchored = true
		g.last = now
		return 0
	}
	dt := now - g.last
	g.last = now
	if dt > maxStep {
		dt = maxStep
	}
	return dt
}

func (g *Game) step(dt time.Duration) {
	g.played += dt
	g.slowLeft = decay(g.slowLeft, dt)
	g.doubleLeft = decay(g.doubleLeft, dt)

	scaled := dt
	if g.slowLeft > 0 {
		scaled = dt / 2
	}

	g.order.Remaining -= scaled
	if g.order.Expired() {
		g.expireOrder()
		if g.phase != Playing {
			return
		}
	}

	g.spawnTimer += scaled
	for g.spawnTimer >= g.spawnInterval {
		g.spawnTimer -= g.spawnInterval
		g.spawn()
	}

	g.updateIngredients(scaled)
	g.updatePowerUps(scaled)
	g.updateParticles(dt)
}

func decay(left, dt time.Duration) time.Duration {
	if left <= dt {
		return 0
	}
	return left - dt
}

func (g *Game) fallSpeed() float64 {
	return math.Min(3+0.25*float64(g.completed), 10)
}

// rampedInterval shrinks the spawn interval by 8% per completed order down
// to the configured floor.
func (g *Game) rampedInterval() time.Duration {
	d := time.Duration(float64(g.cfg.SpawnInterval) * math.Pow(0.92, float64(g.completed)))
	if d < g.cfg.MinSpawnInterval {
		d = g.cfg.MinSpawnInterval
	}
	return d
}

func (g *Game) randomX() float64 {
	return 1 + g.rng.Float64()*float64(g.cfg.Width-2)
}

func (g *Game) spawn() {
	kind := Kind(g.rng.IntN(int(BunTop) + 1))
	if g.rng.IntN(2) == 0 {
		kind = g.order.Expected()
	}
	g.spawnIngredient(kind, g.randomX(), g.fallSpeed())

	if len(g.powerUps) == 0 && g.rng.IntN(20) == 0 {
		g.spawnPowerUp(PowerUpKind(g.rng.IntN(2)), g.randomX())
	}
}

func (g *Game) spawnIngredient(kind Kind, x, speed float64) *Ingredient {
	in, ok := pool.Get[*Ingredient](g.manager, PoolIngredients, kind, x, speed)
	if !ok {
		return nil
	}
	g.ingredients = append(g.ingredients, in)
	return in
}

func (g *Game) spawnPowerUp(kind PowerUpKind, x float64) *PowerUp {
	p, ok := pool.Get[*PowerUp](g.manager, PoolPowerUps, kind, x, g.fallSpeed()*0.8)
	if !ok {
		return nil
	}
	g.powerUps = append(g.powerUps, p)
	return p
}

func (g *Game) updateIngredients(dt time.Duration) {
	secs := dt.Seconds()
	live := g.ingredients[:0]
	for _, in := range g.ingredients {
		in.Y += in.Speed * secs
		if in.Y >= float64(g.cfg.Height) {
			g.manager.Release(in.pool, in)
			continue
		}
		live = append(live, in)
	}
	clear(g.ingredients[len(live):])
	g.ingredients = live
}

func (g *Game) updatePowerUps(dt time.Duration) {
	secs := dt.Seconds()
	live := g.powerUps[:0]
	for _, p := range g.powerUps {
		p.Y += p.Speed * secs
		if p.Y >= float64(g.cfg.Height) {
			g.manager.Release(p.pool, p)
			continue
		}
		live = append(live, p)
	}
	clear(g.powerUps[len(live):])
	g.powerUps = live
}

func (g *Game) updateParticles(dt time.Duration) {
	secs := dt.Seconds()
	live := g.particles[:0]
	for _, p := range g.particles {
		p.Life -= dt
		p.VY += gravity * secs
		p.X += p.VX * secs
		p.Y += p.VY * secs
		if p.Life <= 0 || p.Y >= float64(g.cfg.Height) || p.X < 0 || p.X >= float64(g.cfg.Width) {
			g.manager.Release(p.pool, p)
			continue
		}
		live = append(live, p)
	}
	clear(g.particles[len(live):])
	g.particles = live
}

func hit(ex, ey, x, y float64) bool {
	return math.Abs(ex-x) <= 1.5 && math.Abs(ey-y) <= 1
}

func (g *Game) click(x, y float64) {
	for i, p := range g.powerUps {
		if hit(p.X, p.Y, x, y) {
			g.powerUps = append(g.powerUps[:i], g.powerUps[i+1:]...)
			g.activate(p.Kind)
			g.manager.Release(p.pool, p)
			return
		}
	}

	best, bestDist := -1, math.MaxFloat64
	for i, in := range g.ingredients {
		if !hit(in.X, in.Y, x, y) {
			continue
		}
		if d := math.Hypot(in.X-x, in.Y-y); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return
	}

	in := g.ingredients[best]
	g.ingredients = append(g.ingredients[:best], g.ingredients[best+1:]...)
	if in.Kind == g.order.Expected() {
		g.collect(in)
	} else {
		g.miss(in)
	}
	g.manager.Release(in.pool, in)
}

func (g *Game) multiplier() int {
	if g.doubleLeft > 0 {
		return 2
	}
	return 1
}

func (g *Game) activate(kind PowerUpKind) {
	switch kind {
	case SlowTime:
		g.slowLeft = kind.Duration()
	case DoublePoints:
		g.doubleLeft = kind.Duration()
	}
	g.play(EffectPowerUp)
	g.logger.Debug("power-up collected", zap.String("kind", kind.String()))
}

func (g *Game) collect(in *Ingredient) {
	g.addScore(10 * g.combo * g.multiplier())
	g.combo = min(g.combo+1, MaxCombo)
	g.burst(PoolParticles, in.X, in.Y, 8, in.Kind)
	g.play(EffectCollect)

	g.order.Next++
	if g.order.Done() {
		g.completeOrder()
	}
}

func (g *Game) miss(in *Ingredient) {
	g.combo = 1
	g.play(EffectMiss)
	g.logger.Debug("wrong ingredient",
		zap.Stringer("clicked", in.Kind),
		zap.Stringer("expected", g.order.Expected()))
}

func (g *Game) completeOrder() {
	reward := g.order.Reward() * g.multiplier()
	g.addScore(reward)
	g.completed++
	g.spawnInterval = g.rampedInterval()

	g.burst(PoolCelebration, float64(g.cfg.Width)/2, float64(g.cfg.Height)/3, 16, Cheese)
	g.play(EffectOrderComplete)
	if g.hooks.Order != nil {
		g.hooks.Order(OrderResult{Outcome: "completed", Ingredients: len(g.order.Ingredients), Points: reward})
	}
	g.order = g.nextOrder()
}

func (g *Game) expireOrder() {
	g.lives--
	g.combo = 1
	g.play(EffectOrderExpired)
	if g.hooks.Order != nil {
		g.hooks.Order(OrderResult{Outcome: "expired", Ingredients: len(g.order.Ingredients)})
	}
	g.logger.Debug("order expired", zap.Int("order", g.order.ID), zap.Int("lives", g.lives))

	if g.lives <= 0 {
		g.gameOver()
		return
	}
	g.order = g.nextOrder()
}

func (g *Game) gameOver() {
	g.phase = Over
	g.releaseAll()

	res := Result{
		Score:    g.score,
		Best:     g.best,
		Orders:   g.completed,
		Duration: g.played,
		Level:    g.monitor.Level(),
	}
	if g.score > g.best {
		g.best = g.score
		res.Best, res.NewBest = g.score, true
	}
	g.play(EffectGameOver)
	g.logger.Info("game over",
		zap.Int("score", res.Score),
		zap.Bool("new_best", res.NewBest),
		zap.Int("orders", res.Orders),
		zap.Duration("played", res.Duration))
	if g.hooks.GameOver != nil {
		g.hooks.GameOver(res)
	}
}

func (g *Game) releaseAll() {
	for _, in := range g.ingredients {
		g.manager.Release(in.pool, in)
	}
	for _, p := range g.powerUps {
		g.manager.Release(p.pool, p)
	}
	for _, p := range g.particles {
		g.manager.Release(p.pool, p)
	}
	g.ingredients, g.powerUps, g.particles = nil, nil, nil
}

func (g *Game) nextOrder() *Order {
	g.orderSeq++
	return NewOrder(g.rng, g.orderSeq, g.cfg.OrderTimeLimit)
}

// burst spawns up to n particles from poolName, scaled by particle detail
// and capped by the remaining particle budget. Nothing is spawned when
// effects are disabled.
func (g *Game) burst(poolName string, x, y float64, n int, kind Kind) int {
	if !g.quality.EnableEffects {
		return 0
	}
	n = int(math.Ceil(float64(n) * burstScale(g.quality.ParticleDetail)))
	if room := g.quality.MaxParticles - len(g.particles); n > room {
		n = room
	}

	spawned := 0
	for ; spawned < n; spawned++ {
		angle := g.rng.Float64() * 2 * math.Pi
		speed := 4 + g.rng.Float64()*8
		life := 400*time.Millisecond + time.Duration(g.rng.IntN(400))*time.Millisecond
		p, ok := pool.Get[*Particle](g.manager, poolName,
			poolName, x, y, math.Cos(angle)*speed, math.Sin(angle)*speed-6, life, kind)
		if !ok {
			break
		}
		g.particles = append(g.particles, p)
	}
	return spawned
}

func (g *Game) addScore(points int) {
	g.score += points
	g.emitScore()
}

func (g *Game) emitScore() {
	if g.hooks.Score != nil {
		g.hooks.Score(g.score)
	}
}

func (g *Game) play(e Effect) {
	if g.sound != nil {
		g.sound.Play(e)
	}
}

func (g *Game) render() {
	if g.renderer == nil {
		return
	}
	g.frame = Frame{
		Width:       g.cfg.Width,
		Height:      g.cfg.Height,
		Phase:       g.phase,
		Ingredients: g.ingredients,
		Particles:   g.particles,
		PowerUps:    g.powerUps,
		Order:       g.order,
		Score:       g.score,
		Best:        max(g.best, g.score),
		Combo:       g.combo,
		Lives:       g.lives,
		SlowLeft:    g.slowLeft,
		DoubleLeft:  g.doubleLeft,
		Level:       g.monitor.Level(),
		Stats:       g.monitor.Stats(),
	}
	g.renderer.Draw(&g.frame)
}

func (g *Game) publish() {
	st := Status{
		Phase:       g.phase.String(),
		Score:       g.score,
		Best:        max(g.best, g.score),
		Combo:       g.combo,
		Lives:       g.lives,
		Orders:      g.completed,
		Level:       g.monitor.Level().String(),
		Ingredients: len(g.ingredients),
		Particles:   len(g.particles),
		PowerUps:    len(g.powerUps),
		SlowLeft:    g.slowLeft,
		DoubleLeft:  g.doubleLeft,
		Played:      g.played,
	}
	g.statusMu.Lock()
	g.status = st
	g.statusMu.Unlock()
}
