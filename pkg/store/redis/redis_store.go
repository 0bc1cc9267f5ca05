package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/store"
)

// RedisOptions represents configuration options for the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements Store on Redis: events append to a stream, the
// latest snapshot lives under a plain key. Stream entries carry the sequence
// number alongside the JSON payload so consumers can resume by position.
type RedisStore struct {
	client      *redis.Client
	streamKey   string
	snapshotKey string
	logger      *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection, retrying
// with exponential backoff until the server responds or ctx is done.
func NewRedisStore(ctx context.Context, opts *RedisOptions, prefix string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		pingErr := client.Ping(ctx).Err()
		if pingErr != nil {
			logger.Warn("redis not reachable, retrying",
				zap.String("addr", opts.Addr),
				zap.Error(pingErr))
		}
		return pingErr
	}, backoff.WithContext(boff, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{
		client:      client,
		streamKey:   fmt.Sprintf("%s:events", prefix),
		snapshotKey: fmt.Sprintf("%s:snapshot", prefix),
		logger:      logger,
	}, nil
}

// PersistEvents appends the events to the stream in one pipeline round trip
func (s *RedisStore) PersistEvents(ctx context.Context, events []core.Event) error {
	if len(events) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.streamKey,
			Values: map[string]interface{}{
				"seq":     ev.Seq(),
				"payload": payload,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("failed to persist events",
			zap.Int("count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to persist events: %w", err)
	}

	return nil
}

// SaveSnapshot overwrites the stored snapshot
func (s *RedisStore) SaveSnapshot(ctx context.Context, snapshot *core.BookSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.snapshotKey, data, 0).Err(); err != nil {
		s.logger.Error("failed to save snapshot",
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot loads the stored snapshot. It returns nil without error
// when no snapshot has been saved yet.
func (s *RedisStore) LatestSnapshot(ctx context.Context) (*core.BookSnapshot, error) {
	data, err := s.client.Get(ctx, s.snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot core.BookSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// EventCount returns the number of persisted events
func (s *RedisStore) EventCount(ctx context.Context) (int64, error) {
	n, err := s.client.XLen(ctx, s.streamKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream length: %w", err)
	}
	return n, nil
}

// Close releases the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store
var _ store.Store = (*RedisStore)(nil)
