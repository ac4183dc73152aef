package highscore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

type fileRecord struct {
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps the best score in a small JSON file. Writes go to a
// temporary file that is renamed over the old one.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens the store at path. The file is created on the first
// improving Submit.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "file highscore store needs a path")
	}
	s := &FileStore{path: path}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) read() (fileRecord, error) {
	var rec fileRecord
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return rec, nil
	}
	if err != nil {
		return rec, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read highscore file").
			WithDetail("path", s.path)
	}
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, errors.Wrap(err, errors.ErrorTypeStorage, "corrupt highscore file").
			WithDetail("path", s.path)
	}
	return rec, nil
}

func (s *FileStore) write(rec fileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "failed to encode highscore")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".highscore-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write highscore")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write highscore")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to replace highscore file").
			WithDetail("path", s.path)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return 0, err
	}
	return rec.Score, nil
}

// Submit implements Store.
func (s *FileStore) Submit(_ context.Context, score int) (int, bool, error) {
	if err := validateScore(score); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return 0, false, err
	}
	if score <= rec.Score {
		return rec.Score, false, nil
	}
	if err := s.write(fileRecord{Score: score, UpdatedAt: time.Now().UTC()}); err != nil {
		return rec.Score, false, err
	}
	return score, true, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
