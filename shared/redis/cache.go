package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	goredis "github.com/redis/go-redis/v9"
)

// setIfNewer writes the view and its version into the hash at KEYS[1] unless
// the hash already holds a version greater than or equal to ARGV[2].
// ARGV[3] is the TTL in milliseconds, 0 for none.
var setIfNewer = goredis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'version', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Every entry is a hash holding the serialised view and the version of the
// record it was built from. Writes carrying an older version are dropped, so
// a slow reader warming the cache cannot replace a fresher projection.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
	logger log.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
// Pass a ttl of 0 for entries that should not expire.
func NewViewCache[T any](client *goredis.Client, ttl time.Duration, logger log.Logger) *ViewCache[T] {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ViewCache[T]{client: client, ttl: ttl, logger: log.With(logger, "component", "viewcache")}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.HGet(ctx, key, "data").Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			_ = level.Warn(c.logger).Log("msg", "read error", "key", key, "err", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		_ = level.Warn(c.logger).Log("msg", "unmarshal error", "key", key, "err", err)
		return nil, false
	}
	return &v, true
}

// Set stores value under key if version is newer than the cached one and
// reports whether it was written. Errors are logged rather than returned; a
// cache write miss is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T, version int64) bool {
	data, err := json.Marshal(value)
	if err != nil {
		_ = level.Error(c.logger).Log("msg", "marshal error", "key", key, "err", err)
		return false
	}
	written, err := setIfNewer.Run(ctx, c.client, []string{key}, string(data), version, c.ttl.Milliseconds()).Int()
	if err != nil {
		_ = level.Warn(c.logger).Log("msg", "write error", "key", key, "err", err)
		return false
	}
	if written == 0 {
		_ = level.Debug(c.logger).Log("msg", "stale write skipped", "key", key, "version", version)
	}
	return written == 1
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		_ = level.Warn(c.logger).Log("msg", "delete error", "key", key, "err", err)
	}
}
