package performance

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, l := range Levels {
		got, ok := ParseLevel(l.String())
		require.True(t, ok)
		assert.Equal(t, l, got)
	}

	got, ok := ParseLevel("  Critical ")
	assert.True(t, ok)
	assert.Equal(t, Critical, got)

	_, ok = ParseLevel("ultra")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Level(7).String())
}

func TestLevelText(t *testing.T) {
	var l Level
	require.NoError(t, l.UnmarshalText([]byte("low")))
	assert.Equal(t, Low, l)

	data, err := json.Marshal(struct {
		L Level `json:"l"`
	}{Medium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"l":"medium"}`, string(data))
}

func TestDefaultQualityTable(t *testing.T) {
	table := DefaultQualityTable()

	assert.Equal(t, 200, table[High].MaxParticles)
	assert.True(t, table[High].EnableShadows)
	assert.Equal(t, 120, table[Medium].MaxParticles)
	assert.False(t, table[Medium].EnableShadows)
	assert.True(t, table[Medium].EnableTextures)
	assert.Equal(t, 0.75, table[Low].RenderScale)
	assert.False(t, table[Low].EnableTextures)
	assert.True(t, table[Low].EnableEffects)
	assert.Equal(t, DetailMinimal, table[Critical].ParticleDetail)
	assert.False(t, table[Critical].EnableEffects)

	assert.Equal(t, table[High], table.Settings(Level(42)))
}

func TestQualityTableOverrides(t *testing.T) {
	base := DefaultQualityTable()
	custom := QualitySettings{MaxParticles: 10, ParticleDetail: DetailLow, RenderScale: 0.25}

	table, unknown := base.WithOverrides(map[string]QualitySettings{
		"Critical": custom,
		"insane":   {},
	})

	assert.Equal(t, custom, table[Critical])
	assert.Equal(t, base[High], table[High])
	assert.Equal(t, []string{"insane"}, unknown)
	assert.Equal(t, 25, base[Critical].MaxParticles, "receiver is not modified")
}

func TestReportJSON(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMonitor(DefaultConfig(), WithClock(func() time.Time { return at }))
	m.SetLevel(Low, true)

	data, err := m.Report().JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "low", decoded["level"])
	assert.Equal(t, float64(60), decoded["target_fps"])
	assert.Equal(t, float64(0), decoded["uptime"])
	settings, ok := decoded["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(60), settings["max_particles"])
}

func TestDeviceProfile(t *testing.T) {
	assert.Equal(t, Medium, DeviceProfile{LogicalCPUs: 2, TotalMemory: 16 << 30}.InitialLevel())
	assert.Equal(t, Medium, DeviceProfile{LogicalCPUs: 8, TotalMemory: 1 << 30}.InitialLevel())
	assert.Equal(t, High, DeviceProfile{LogicalCPUs: 8, TotalMemory: 16 << 30}.InitialLevel())
	assert.Equal(t, High, DeviceProfile{}.InitialLevel())
}

func TestResourceMonitorUsage(t *testing.T) {
	usage := NewResourceMonitor().Usage()
	assert.Positive(t, usage.GoroutineCount)
	assert.Positive(t, usage.HeapAlloc)
}
