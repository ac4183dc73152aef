package highscore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS high_scores (
	key        TEXT PRIMARY KEY,
	score      BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the best score in a PostgreSQL row.
type PostgresStore struct {
	pool    *pgxpool.Pool
	key     string
	timeout time.Duration
	log     *zap.Logger
}

// NewPostgresStore connects, pings and creates the table if needed.
func NewPostgresStore(ctx context.Context, cfg config.HighScoreConfig, log *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parse dsn")
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "connect to postgres")
	}

	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "ping postgres")
	}
	if _, err := pool.Exec(pingCtx, pgSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "create high_scores table")
	}

	log.Info("highscore store ready", zap.String("key", cfg.Key))
	return &PostgresStore{pool: pool, key: cfg.Key, timeout: cfg.Timeout, log: log}, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var score int64
	err := s.pool.QueryRow(ctx, `SELECT score FROM high_scores WHERE key = $1`, s.key).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "query highscore")
	}
	return int(score), nil
}

// Submit implements Store. The row is locked for the duration of the
// compare so concurrent submits cannot both report an improvement.
func (s *PostgresStore) Submit(ctx context.Context, score int) (int, bool, error) {
	if err := validateScore(score); err != nil {
		return 0, false, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeConnection, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var prev int64
	err = tx.QueryRow(ctx, `SELECT score FROM high_scores WHERE key = $1 FOR UPDATE`, s.key).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "query highscore")
	}
	if int64(score) <= prev {
		return int(prev), false, nil
	}

	_, err = tx.Exec(ctx, `INSERT INTO high_scores (key, score, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET score = GREATEST(high_scores.score, EXCLUDED.score), updated_at = now()`,
		s.key, score)
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "upsert highscore")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "commit highscore")
	}
	s.log.Debug("new highscore", zap.Int("score", score), zap.Int64("previous", prev))
	return score, true, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
