// Package highscore persists the single best score of the game.
//
// Stores keep one integer per key and only ever raise it: Submit with a
// lower score leaves the stored value unchanged.
package highscore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

// Store is a persistent best-score scalar.
type Store interface {
	// Get returns the best score, 0 when none was recorded yet.
	Get(ctx context.Context) (int, error)
	// Submit records score if it beats the stored one. It returns the best
	// score after the call and whether score became the new best.
	Submit(ctx context.Context, score int) (best int, improved bool, err error)
	// Close releases connections and files.
	Close() error
}

const defaultTimeout = 3 * time.Second

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.HighScoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Key == "" {
		cfg.Key = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger = logger.With(zap.String("backend", cfg.Backend))

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "memory", "":
		store = NewMemoryStore()
	case "file":
		store, err = openAs(NewFileStore(cfg.Path))
	case "postgres":
		store, err = openAs(NewPostgresStore(ctx, cfg, logger))
	case "mysql":
		store, err = openAs(NewMySQLStore(ctx, cfg, logger))
	case "mongo":
		store, err = openAs(NewMongoStore(ctx, cfg, logger))
	default:
		err = errors.Newf(errors.ErrorTypeConfig, "unknown highscore backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openAs keeps a failed constructor from leaking a typed nil into Store.
func openAs[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func validateScore(score int) error {
	if score < 0 {
		return errors.Newf(errors.ErrorTypeValidation, "score must not be negative, got %d", score)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
