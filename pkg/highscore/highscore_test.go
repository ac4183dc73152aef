package highscore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

func checkStoreKeepsMax(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	best, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, best)

	best, improved, err := s.Submit(ctx, 120)
	require.NoError(t, err)
	assert.True(t, improved)
	assert.Equal(t, 120, best)

	best, improved, err = s.Submit(ctx, 80)
	require.NoError(t, err)
	assert.False(t, improved, "lower score must not replace the best")
	assert.Equal(t, 120, best)

	best, improved, err = s.Submit(ctx, 120)
	require.NoError(t, err)
	assert.False(t, improved, "a tie is not an improvement")
	assert.Equal(t, 120, best)

	_, _, err = s.Submit(ctx, -1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	best, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, best)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	checkStoreKeepsMax(t, s)
}

func TestMemoryStoreConcurrentSubmits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		improved int
	)
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, ok, err := s.Submit(ctx, score)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				improved++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	best, _ := s.Get(ctx)
	assert.Equal(t, 50, best)
	assert.GreaterOrEqual(t, improved, 1)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	checkStoreKeepsMax(t, s)

	// a fresh store reads what the first one wrote
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	best, err := reopened.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, best)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileStoreErrors(t *testing.T) {
	_, err := NewFileStore("")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	path := filepath.Join(t.TempDir(), "score.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = NewFileStore(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	s, err := NewFileStore(empty)
	require.NoError(t, err)
	best, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, best)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.HighScoreConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.HighScoreConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "hs.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, config.HighScoreConfig{Backend: "redis"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestOpenRejectsMalformedDSN(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		dsn     string
		errType errors.ErrorType
	}{
		{"postgres", "postgres://user@localhost:notaport/db", errors.ErrorTypeConfig},
		{"mysql", "missing-slash", errors.ErrorTypeConfig},
		{"mongo", "redis://localhost:6379", errors.ErrorTypeConnection},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			_, err := Open(ctx, config.HighScoreConfig{Backend: tt.backend, DSN: tt.dsn}, nil)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}
