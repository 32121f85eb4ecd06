// Package cache holds computed analytics results in Redis so repeated
// reads of an unchanged audit skip rescoring. Keys carry a fingerprint
// of the record set, which makes stale entries unreachable rather than
// wrong: any change to the records changes the key.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/config"
	"github.com/halosight/presence-cli/internal/model"
)

const defaultTTL = 30 * time.Minute

// Cache stores analytics results with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection before returning.
func New(cfg config.CacheConfig) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, eris.Wrapf(err, "cache: connect redis at %s", opts.Addr)
	}

	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultTTL
	}

	zap.L().Info("analytics cache connected",
		zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return &Cache{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key builds the cache key for one audit's analytics at one record-set
// state.
func Key(auditID string, records []model.QueryRecord) string {
	return "analytics:" + auditID + ":" + Fingerprint(records)
}

// Fingerprint hashes the identity and progress of a record set. Record
// order doesn't matter; any ID, status, or update-time change does.
func Fingerprint(records []model.QueryRecord) string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("%s|%s|%s",
			rec.ID, rec.Status, rec.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		fmt.Fprintln(h, line)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Get returns the cached result for the key, or found=false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*analytics.Result, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}

	var result analytics.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, eris.Wrap(err, "cache: unmarshal result")
	}

	zap.L().Debug("analytics cache hit", zap.String("key", key))
	return &result, true, nil
}

// Set stores the result under the key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, result *analytics.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "cache: marshal result")
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: set")
	}
	return nil
}

// Invalidate removes every cached result for one audit, across all
// fingerprints.
func (c *Cache) Invalidate(ctx context.Context, auditID string) error {
	iter := c.client.Scan(ctx, 0, "analytics:"+auditID+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			zap.L().Warn("failed to delete cache key",
				zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	return eris.Wrap(iter.Err(), "cache: scan keys")
}
