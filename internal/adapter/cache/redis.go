package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ragrec/internal/logging"
)

// RedisCache shares embeddings between processes through Redis. Keys are
// written with SETNX so the first writer wins.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client. ttl 0 keeps entries forever.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("redis cache read failed")
		}
		return nil, false
	}
	vec, err := UnpackEmbedding(raw)
	if err != nil {
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Put(ctx context.Context, key string, vec []float32) error {
	return c.client.SetNX(ctx, c.prefix+key, PackEmbedding(vec), c.ttl).Err()
}

// Len counts keys under the prefix. It scans the keyspace and is meant
// for diagnostics only.
func (c *RedisCache) Len() int {
	ctx := context.Background()
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return n
		}
		n += len(keys)
		if next == 0 {
			return n
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
