package performance

import (
	"time"

	"github.com/goccy/go-json"
)

// Report is a point-in-time summary of a Monitor for debug endpoints and
// benchmark output.
type Report struct {
	Level        Level           `json:"level"`
	Settings     QualitySettings `json:"settings"`
	Stats        Stats           `json:"stats"`
	Candidates   map[string]int  `json:"candidates"`
	LevelChanges int64           `json:"level_changes"`
	FrameDrops   int64           `json:"frame_drops"`
	TargetFPS    float64         `json:"target_fps"`
	Uptime       time.Duration   `json:"uptime"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Report builds a fresh snapshot. Candidates counts each level across the
// collected candidate history.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	r := Report{
		Level:        m.level,
		Settings:     m.table.Settings(m.level),
		Stats:        m.stats,
		Candidates:   make(map[string]int, len(Levels)),
		LevelChanges: m.changes,
		FrameDrops:   m.frameDrops,
		TargetFPS:    m.cfg.TargetFPS,
		Uptime:       now.Sub(m.started),
		GeneratedAt:  now,
	}
	for _, l := range Levels {
		r.Candidates[l.String()] = 0
	}
	n := len(m.history)
	for i := 1; i <= m.histLen; i++ {
		r.Candidates[m.history[(m.histAt-i+n)%n].String()]++
	}
	return r
}

// JSON encodes the report.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}
