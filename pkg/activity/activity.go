// Package activity tracks per-user file interactions and ranks the files
// a user is most likely to reopen.
//
// Interactions land in a Redis sorted set per user, scored by timestamp.
// The set is trimmed to a bounded history and expires wholesale after the
// retention window, so idle accounts cost nothing. When Redis is not
// configured the tracker degrades to a no-op and callers fall back to
// recency ordering.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
)

// Config holds Redis connection and retention settings.
type Config struct {
	// Addr is the Redis host:port. Empty disables activity tracking.
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`

	// Retention is how long a user's activity history survives without
	// new interactions. Default: 90 days.
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`

	// MaxHistory bounds the tracked interactions per user. Default: 200.
	MaxHistory int64 `mapstructure:"max_history" yaml:"max_history"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Retention == 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 200
	}
}

// Tracker records interactions and serves activity-ranked file ids.
type Tracker interface {
	// Touch records an interaction with a file.
	Touch(ctx context.Context, ownerID, entryID string)

	// Forget drops a file from the history, e.g. after deletion.
	Forget(ctx context.Context, ownerID, entryID string)

	// Ranked returns up to limit file ids, most relevant first. An empty
	// result means the caller should fall back to recency.
	Ranked(ctx context.Context, ownerID string, limit int) ([]string, error)

	// Close releases the backing connection.
	Close() error
}

// New creates a Redis-backed tracker, or a no-op tracker when no address
// is configured.
func New(cfg Config) (Tracker, error) {
	if cfg.Addr == "" {
		return NewNoop(), nil
	}
	cfg.ApplyDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisTracker{
		client:     client,
		retention:  cfg.Retention,
		maxHistory: cfg.MaxHistory,
	}, nil
}

type redisTracker struct {
	client     *redis.Client
	retention  time.Duration
	maxHistory int64
}

func activityKey(ownerID string) string {
	return "activity:" + ownerID
}

// Touch is best-effort: a dead Redis degrades suggestions, it never fails
// a file operation.
func (t *redisTracker) Touch(ctx context.Context, ownerID, entryID string) {
	key := activityKey(ownerID)
	pipe := t.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: entryID,
	})
	pipe.ZRemRangeByRank(ctx, key, 0, -(t.maxHistory + 1))
	pipe.Expire(ctx, key, t.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.DebugCtx(ctx, "activity touch failed", logger.KeyError, err)
	}
}

func (t *redisTracker) Forget(ctx context.Context, ownerID, entryID string) {
	if err := t.client.ZRem(ctx, activityKey(ownerID), entryID).Err(); err != nil {
		logger.DebugCtx(ctx, "activity forget failed", logger.KeyError, err)
	}
}

func (t *redisTracker) Ranked(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := t.client.ZRevRange(ctx, activityKey(ownerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity ranking: %w", err)
	}
	return ids, nil
}

func (t *redisTracker) Close() error {
	return t.client.Close()
}

// NewNoop returns a tracker that records nothing and ranks nothing.
func NewNoop() Tracker {
	return noopTracker{}
}

type noopTracker struct{}

func (noopTracker) Touch(context.Context, string, string)  {}
func (noopTracker) Forget(context.Context, string, string) {}
func (noopTracker) Ranked(context.Context, string, int) ([]string, error) {
	return nil, nil
}
func (noopTracker) Close() error { return nil }
