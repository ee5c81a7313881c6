package docgraph

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisSourceTTL bounds how long a cached document's source bytes survive
// in Redis once the process that added them stops touching it.
const redisSourceTTL = 10 * time.Minute

const redisSourceKeyPrefix = "wdlrun:source:"

// RedisSourceCache is the cache.backend: redis SourceCache, for sharing a
// document's source bytes across multiple wdlrun processes instead of
// keeping them process-local. Grounded on evalgo-org/eve's
// RedisRepository (db/repository/redis.go): a thin wrapper over
// *redis.Client with a namespaced key prefix and a fixed TTL.
type RedisSourceCache struct {
	client *redis.Client
}

// NewRedisSourceCache wraps an existing Redis client.
func NewRedisSourceCache(client *redis.Client) *RedisSourceCache {
	return &RedisSourceCache{client: client}
}

func (c *RedisSourceCache) Get(ctx context.Context, uri string) ([]byte, bool) {
	data, err := c.client.Get(ctx, redisSourceKeyPrefix+uri).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, false
		}

		return nil, false
	}

	return data, true
}

func (c *RedisSourceCache) Add(ctx context.Context, uri string, source []byte) {
	// Best-effort: a failed cache write just means the next AddDocument
	// re-fetches from the source, not a correctness problem.
	_ = c.client.Set(ctx, redisSourceKeyPrefix+uri, source, redisSourceTTL).Err()
}
