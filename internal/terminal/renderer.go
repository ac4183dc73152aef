// Package terminal draws Burger Drop frames on a tcell screen and turns
// mouse and keyboard events into game input.
package terminal

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
)

// hudRows is the number of screen rows above the playfield.
const hudRows = 2

// sprite is how an ingredient looks with and without textures.
type sprite struct {
	textured string
	plain    rune
	color    tcell.Color
}

var sprites = map[game.Kind]sprite{
	game.BunBottom: {"\\_/", 'B', tcell.ColorSandyBrown},
	game.Patty:     {"###", 'P', tcell.ColorSaddleBrown},
	game.Cheese:    {"~~~", 'C', tcell.ColorGold},
	game.Lettuce:   {"%%%", 'L', tcell.ColorGreen},
	game.Tomato:    {"ooo", 'T', tcell.ColorRed},
	game.Onion:     {"@@@", 'O', tcell.ColorPlum},
	game.Pickle:    {"===", 'K', tcell.ColorOliveDrab},
	game.Bacon:     {"zzz", 'N', tcell.ColorIndianRed},
	game.BunTop:    {"/^\\", 'U', tcell.ColorSandyBrown},
}

var (
	styleHUD     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleShadow  = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorSlateGray)
	styleWarning = tcell.StyleDefault.Foreground(tcell.ColorOrangeRed).Bold(true)
	stylePowerUp = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
)

// Renderer implements game.Renderer on a tcell.Screen.
type Renderer struct {
	screen tcell.Screen
	logger *zap.Logger

	mu       sync.RWMutex
	features game.Features
	originX  int
	width    int
	height   int
}

// NewRenderer wraps an initialised screen.
func NewRenderer(screen tcell.Screen, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		screen:   screen,
		logger:   logger,
		features: game.FeaturesFrom(performance.DefaultQualityTable().Settings(performance.High)),
	}
}

// OpenScreen creates and initialises the terminal screen with mouse
// reporting enabled.
func OpenScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRender, "failed to create terminal screen")
	}
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRender, "failed to initialise terminal screen")
	}
	screen.EnableMouse()
	screen.HideCursor()
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()
	return screen, nil
}

// SetFeatures switches the drawing detail. It is called by the game loop
// on every quality level change.
func (r *Renderer) SetFeatures(f game.Features) {
	r.mu.Lock()
	r.features = f
	r.mu.Unlock()
	r.logger.Debug("renderer features changed",
		zap.Bool("shadows", f.Shadows),
		zap.Bool("textures", f.Textures),
		zap.Bool("effects", f.Effects),
		zap.String("particle_detail", string(f.ParticleDetail)),
		zap.Float64("render_scale", f.RenderScale))
}

// Features returns the active drawing detail.
func (r *Renderer) Features() game.Features {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features
}

// Draw paints one frame and shows it.
func (r *Renderer) Draw(f *game.Frame) {
	sw, sh := r.screen.Size()
	originX := 0
	if sw > f.Width+2 {
		originX = (sw - f.Width - 2) / 2
	}

	r.mu.Lock()
	r.originX, r.width, r.height = originX+1, f.Width, f.Height
	features := r.features
	r.mu.Unlock()

	r.screen.Clear()
	r.drawHUD(f, sw)
	r.drawBorder(originX, f.Width, f.Height, sh)

	px := originX + 1
	if features.Effects {
		r.drawParticles(px, f, features)
	}
	for _, p := range f.PowerUps {
		r.drawPowerUp(px, f, p)
	}
	for _, in := range f.Ingredients {
		r.drawIngredient(px, f, in, features)
	}
	r.drawOverlay(px, f)
	r.screen.Show()
}

// ToPlayfield converts a screen cell to playfield coordinates. It reports
// false for cells outside the playfield.
func (r *Renderer) ToPlayfield(sx, sy int) (x, y float64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cx, cy := sx-r.originX, sy-hudRows
	if cx < 0 || cy < 0 || cx >= r.width || cy >= r.height {
		return 0, 0, false
	}
	return float64(cx) + 0.5, float64(cy) + 0.5, true
}

func (r *Renderer) drawHUD(f *game.Frame, sw int) {
	line := fmt.Sprintf(" score %d  best %d  combo x%d  lives %s  ", f.Score, f.Best, f.Combo, hearts(f.Lives))
	x := r.text(0, 0, line, styleHUD)
	if f.DoubleLeft > 0 {
		x = r.text(x, 0, fmt.Sprintf("2x %ds  ", seconds(f.DoubleLeft)), stylePowerUp)
	}
	if f.SlowLeft > 0 {
		r.text(x, 0, fmt.Sprintf("slow %ds  ", seconds(f.SlowLeft)), stylePowerUp)
	}

	stats := fmt.Sprintf("%s  %.0f fps ", f.Level, f.Stats.AverageFPS)
	r.text(sw-len(stats), 0, stats, styleDim)

	if f.Order == nil {
		return
	}
	x = r.text(0, 1, fmt.Sprintf(" order #%d ", f.Order.ID), styleHUD)
	for i, k := range f.Order.Ingredients {
		style := tcell.StyleDefault.Foreground(sprites[k].color)
		switch {
		case i < f.Order.Next:
			style = style.Dim(true)
		case i == f.Order.Next:
			style = style.Reverse(true)
		}
		x = r.text(x, 1, k.String(), style) + 1
	}
	timer := styleHUD
	if f.Order.Remaining < 5*time.Second {
		timer = styleWarning
	}
	r.text(x+1, 1, fmt.Sprintf("%ds", seconds(f.Order.Remaining)), timer)
}

func (r *Renderer) drawBorder(x0, w, h, sh int) {
	bottom := hudRows + h
	if bottom >= sh {
		bottom = sh - 1
	}
	for y := hudRows; y < bottom; y++ {
		r.screen.SetContent(x0, y, '│', nil, styleBorder)
		r.screen.SetContent(x0+w+1, y, '│', nil, styleBorder)
	}
	for x := x0; x <= x0+w+1; x++ {
		r.screen.SetContent(x, bottom, '─', nil, styleBorder)
	}
}

func (r *Renderer) drawIngredient(px int, f *game.Frame, in *game.Ingredient, features game.Features) {
	s, ok := sprites[in.Kind]
	if !ok {
		return
	}
	x, y := px+int(in.X), hudRows+int(in.Y)
	if in.Y < 0 || in.Y >= float64(f.Height) {
		return
	}
	style := tcell.StyleDefault.Foreground(s.color)
	if features.Shadows && int(in.Y)+1 < f.Height {
		r.screen.SetContent(x+1, y+1, '░', nil, styleShadow)
	}
	if !features.Textures {
		r.screen.SetContent(x, y, s.plain, nil, style.Bold(true))
		return
	}
	for i, c := range s.textured {
		r.screen.SetContent(x-1+i, y, c, nil, style)
	}
}

func (r *Renderer) drawPowerUp(px int, f *game.Frame, p *game.PowerUp) {
	if p.Y < 0 || p.Y >= float64(f.Height) {
		return
	}
	glyph := '⧗'
	if p.Kind == game.DoublePoints {
		glyph = '✦'
	}
	r.screen.SetContent(px+int(p.X), hudRows+int(p.Y), glyph, nil, stylePowerUp)
}

// drawParticles honours RenderScale by drawing every n-th particle.
func (r *Renderer) drawParticles(px int, f *game.Frame, features game.Features) {
	step := 1
	if features.RenderScale > 0 && features.RenderScale < 1 {
		step = int(math.Round(1 / features.RenderScale))
	}
	for i, p := range f.Particles {
		if i%step != 0 {
			continue
		}
		if p.X < 0 || p.Y < 0 || p.X >= float64(f.Width) || p.Y >= float64(f.Height) {
			continue
		}
		style := tcell.StyleDefault.Foreground(sprites[p.Kind].color)
		if p.Fade() < 0.4 {
			style = style.Dim(true)
		}
		r.screen.SetContent(px+int(p.X), hudRows+int(p.Y), particleGlyph(features.ParticleDetail, p.Fade()), nil, style)
	}
}

func particleGlyph(d performance.ParticleDetail, fade float64) rune {
	switch d {
	case performance.DetailHigh:
		switch {
		case fade > 0.66:
			return '✶'
		case fade > 0.33:
			return '*'
		default:
			return '·'
		}
	case performance.DetailMedium:
		if fade > 0.5 {
			return '*'
		}
		return '·'
	default:
		return '.'
	}
}

func (r *Renderer) drawOverlay(px int, f *game.Frame) {
	var msg string
	switch f.Phase {
	case game.Ready:
		msg = "click to start · q quits"
	case game.Paused:
		msg = "paused · p resumes"
	case game.Over:
		msg = fmt.Sprintf("game over · score %d · r restarts", f.Score)
	default:
		return
	}
	x := px + (f.Width-len([]rune(msg)))/2
	if x < px {
		x = px
	}
	r.text(x, hudRows+f.Height/2, msg, styleWarning)
}

// text writes s at (x, y) and returns the column after it.
func (r *Renderer) text(x, y int, s string, style tcell.Style) int {
	for _, c := range s {
		r.screen.SetContent(x, y, c, nil, style)
		x++
	}
	return x
}

func hearts(n int) string {
	if n <= 0 {
		return "-"
	}
	s := make([]rune, n)
	for i := range s {
		s[i] = '♥'
	}
	return string(s)
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

var _ game.Renderer = (*Renderer)(nil)
