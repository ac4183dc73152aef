package performance

import (
	"strings"

	"github.com/goccy/go-json"
)

// Level is a discrete quality tier. Lower values mean better performance.
type Level int

const (
	// High is full quality.
	High Level = iota
	// Medium drops shadows and halves particle budgets.
	Medium
	// Low drops textures and scales rendering down.
	Low
	// Critical keeps only what is needed to play.
	Critical
)

// Levels lists every level from best to worst.
var Levels = []Level{High, Medium, Low, Critical}

var levelNames = [...]string{"high", "medium", "low", "critical"}

// String returns the lowercase level name.
func (l Level) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return levelNames[l]
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= High && l <= Critical
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the level as its name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name. Unknown names decode to High.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, ok := ParseLevel(string(text))
	if !ok {
		parsed = High
	}
	*l = parsed
	return nil
}

// ParticleDetail is the level of detail used when drawing particles.
type ParticleDetail string

const (
	DetailHigh    ParticleDetail = "high"
	DetailMedium  ParticleDetail = "medium"
	DetailLow     ParticleDetail = "low"
	DetailMinimal ParticleDetail = "minimal"
)

// QualitySettings is the bundle of rendering and budget knobs for one
// level. Values are copied, never shared.
type QualitySettings struct {
	MaxParticles   int            `json:"max_particles" yaml:"max_particles" mapstructure:"max_particles"`
	EnableShadows  bool           `json:"enable_shadows" yaml:"enable_shadows" mapstructure:"enable_shadows"`
	EnableTextures bool           `json:"enable_textures" yaml:"enable_textures" mapstructure:"enable_textures"`
	EnableEffects  bool           `json:"enable_effects" yaml:"enable_effects" mapstructure:"enable_effects"`
	ParticleDetail ParticleDetail `json:"particle_detail" yaml:"particle_detail" mapstructure:"particle_detail"`
	RenderScale    float64        `json:"render_scale" yaml:"render_scale" mapstructure:"render_scale"`
}

// QualityTable maps every level to its settings.
type QualityTable [4]QualitySettings

// DefaultQualityTable returns the built-in settings table.
func DefaultQualityTable() QualityTable {
	return QualityTable{
		High: {
			MaxParticles:   200,
			EnableShadows:  true,
			EnableTextures: true,
			EnableEffects:  true,
			ParticleDetail: DetailHigh,
			RenderScale:    1.0,
		},
		Medium: {
			MaxParticles:   120,
			EnableTextures: true,
			EnableEffects:  true,
			ParticleDetail: DetailMedium,
			RenderScale:    1.0,
		},
		Low: {
			MaxParticles:   60,
			EnableEffects:  true,
			ParticleDetail: DetailLow,
			RenderScale:    0.75,
		},
		Critical: {
			MaxParticles:   25,
			ParticleDetail: DetailMinimal,
			RenderScale:    0.5,
		},
	}
}

// Settings returns the entry for level, or the High entry when level is
// out of range.
func (t QualityTable) Settings(level Level) QualitySettings {
	if !level.Valid() {
		return t[High]
	}
	return t[level]
}

// WithOverrides returns a copy of t with rows replaced by level name.
// Unknown names are skipped and reported in the second return value.
func (t QualityTable) WithOverrides(overrides map[string]QualitySettings) (QualityTable, []string) {
	var unknown []string
	for name, qs := range overrides {
		level, ok := ParseLevel(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		t[level] = qs
	}
	return t, unknown
}

// MarshalJSON encodes the table as an object keyed by level name.
func (t QualityTable) MarshalJSON() ([]byte, error) {
	m := make(map[string]QualitySettings, len(t))
	for _, l := range Levels {
		m[l.String()] = t[l]
	}
	return json.Marshal(m)
}
