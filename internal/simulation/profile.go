package simulation

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

// Profile shapes the synthetic frame times fed to the game loop.
type Profile string

const (
	// Steady runs at the target frame rate with sub-millisecond jitter.
	Steady Profile = "steady"
	// Degrading slows linearly from the target to 3.5x the target frame time.
	Degrading Profile = "degrading"
	// Spiky runs at the target with a 4x spike every tenth frame.
	Spiky Profile = "spiky"
	// Recovering spends the first half at 2.5x the target, then recovers.
	Recovering Profile = "recovering"
)

// Profiles lists every built-in profile.
var Profiles = []Profile{Steady, Degrading, Spiky, Recovering}

// ParseProfile maps a case-insensitive name to a Profile.
func ParseProfile(name string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Profiles {
		if p == known {
			return p, nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unknown simulation profile: %s", name)
}

// FrameTime returns the duration of frame i out of n.
func (p Profile) FrameTime(i, n int, target time.Duration, rng *rand.Rand) time.Duration {
	jitter := time.Duration(rng.Int64N(int64(time.Millisecond))) - time.Millisecond/2

	switch p {
	case Degrading:
		progress := float64(i) / float64(max(n-1, 1))
		return time.Duration(float64(target)*(1+2.5*progress)) + jitter
	case Spiky:
		if i%10 == 9 {
			return 4*target + jitter
		}
	case Recovering:
		if i < n/2 {
			return target*5/2 + jitter
		}
	}
	return target + jitter
}
