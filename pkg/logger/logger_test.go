package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")

	require.NoError(t, Init(Config{
		Level:       "debug",
		Encoding:    "json",
		OutputPaths: []string{path},
	}))

	ctx := context.WithValue(context.Background(), SessionIDKey, "s-1")
	ctx = context.WithValue(ctx, ModeKey, "play")
	WithContext(ctx).Info("session started")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"s-1"`)
	assert.Contains(t, string(data), `"mode":"play"`)
	assert.Contains(t, string(data), "session started")
}

func TestGetReturnsLogger(t *testing.T) {
	assert.NotNil(t, Get())
}
