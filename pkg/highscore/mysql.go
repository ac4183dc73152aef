package highscore

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS high_scores (
	score_key  VARCHAR(64) PRIMARY KEY,
	score      BIGINT NOT NULL,
	updated_at DATETIME(3) NOT NULL
)`

// MySQLStore keeps the best score in a MySQL row.
type MySQLStore struct {
	db      *sql.DB
	key     string
	timeout time.Duration
	log     *zap.Logger
}

// NewMySQLStore validates the DSN, connects and creates the table if needed.
func NewMySQLStore(ctx context.Context, cfg config.HighScoreConfig, log *zap.Logger) (*MySQLStore, error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parse dsn")
	}
	dsn.ParseTime = true
	dsn.Timeout = cfg.Timeout

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "create mysql connector")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)

	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "ping mysql")
	}
	if _, err := db.ExecContext(pingCtx, mysqlSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "create high_scores table")
	}

	log.Info("highscore store ready", zap.String("key", cfg.Key), zap.String("addr", dsn.Addr))
	return &MySQLStore{db: db, key: cfg.Key, timeout: cfg.Timeout, log: log}, nil
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var score int64
	err := s.db.QueryRowContext(ctx, `SELECT score FROM high_scores WHERE score_key = ?`, s.key).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "query highscore")
	}
	return int(score), nil
}

// Submit implements Store.
func (s *MySQLStore) Submit(ctx context.Context, score int) (int, bool, error) {
	if err := validateScore(score); err != nil {
		return 0, false, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeConnection, "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var prev int64
	err = tx.QueryRowContext(ctx, `SELECT score FROM high_scores WHERE score_key = ? FOR UPDATE`, s.key).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "query highscore")
	}
	if int64(score) <= prev {
		return int(prev), false, nil
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO high_scores (score_key, score, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE score = GREATEST(score, VALUES(score)), updated_at = VALUES(updated_at)`,
		s.key, score, time.Now().UTC())
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "upsert highscore")
	}
	if err := tx.Commit(); err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "commit highscore")
	}
	s.log.Debug("new highscore", zap.Int("score", score), zap.Int64("previous", prev))
	return score, true, nil
}

// Close implements Store.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
