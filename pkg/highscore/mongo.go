package highscore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

type scoreDocument struct {
	Key       string    `bson:"_id"`
	Score     int64     `bson:"score"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps the best score in a single document. Submit relies on
// $max so the comparison happens on the server.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	key     string
	timeout time.Duration
	log     *zap.Logger
}

// NewMongoStore connects and pings the deployment at cfg.DSN.
func NewMongoStore(ctx context.Context, cfg config.HighScoreConfig, log *zap.Logger) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.DSN).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "connect to mongodb")
	}

	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "ping mongodb")
	}

	log.Info("highscore store ready",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
		zap.String("key", cfg.Key))

	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		key:     cfg.Key,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var doc scoreDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": s.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "find highscore")
	}
	return int(doc.Score), nil
}

// Submit implements Store.
func (s *MongoStore) Submit(ctx context.Context, score int) (int, bool, error) {
	if err := validateScore(score); err != nil {
		return 0, false, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	update := bson.D{
		{Key: "$max", Value: bson.D{{Key: "score", Value: int64(score)}}},
		{Key: "$currentDate", Value: bson.D{{Key: "updated_at", Value: true}}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var before scoreDocument
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": s.key}, update, opts).Decode(&before)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		// upserted
		return score, score > 0, nil
	case err != nil:
		return 0, false, errors.Wrap(err, errors.ErrorTypeStorage, "update highscore")
	}

	if int64(score) > before.Score {
		s.log.Debug("new highscore", zap.Int("score", score), zap.Int64("previous", before.Score))
		return score, true, nil
	}
	return int(before.Score), false, nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	ctx, cancel := withTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
