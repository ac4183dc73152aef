// Package audio synthesises Burger Drop sound effects with beep.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

const (
	sampleRate = beep.SampleRate(44100)
	// maxVoices bounds concurrently mixed effects so a burst of collects
	// cannot pile up latency.
	maxVoices = 8
)

// Player mixes effect cues into the speaker. It implements game.Sound.
type Player struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
	dropped     int
	logger      *zap.Logger
}

// NewPlayer creates a player. volume is linear in [0,1].
func NewPlayer(volume float64, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		mixer:  &beep.Mixer{},
		volume: volume,
		logger: logger,
	}
}

// Init opens the audio device.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeAudio, "failed to open audio device")
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.logger.Debug("audio initialized", zap.Int("sample_rate", int(sampleRate)))
	return nil
}

// Play queues the cue for e. It never blocks on the device; without an
// open device, or with every voice busy, the cue is dropped.
func (p *Player) Play(e game.Effect) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	cue := Cue(e, sampleRate, p.volume)
	if cue == nil {
		return
	}

	speaker.Lock()
	defer speaker.Unlock()
	if p.mixer.Len() >= maxVoices {
		p.dropped++
		return
	}
	p.mixer.Add(cue)
}

// Dropped returns how many cues were skipped because every voice was busy.
func (p *Player) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close silences the mixer.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}

var _ game.Sound = (*Player)(nil)
