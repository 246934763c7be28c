package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	entryKeyPrefix = "cache:entry:"
	tagKeyPrefix   = "cache:tag:"
)

// invalidateTagScript drops a tag's member entries and the tag set itself in
// one atomic step, so readers never observe a partially invalidated tag.
const invalidateTagScript = `
local members = redis.call("SMEMBERS", KEYS[1])
for _, member in ipairs(members) do
  redis.call("DEL", member)
end
redis.call("DEL", KEYS[1])
return #members
`

// RedisTagCache is a TagCache backed by redis. Each entry is stored under its
// own key and registered in a set per tag; tag invalidation runs a Lua script
// over the set.
type RedisTagCache struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisTagCache(client *redis.Client) *RedisTagCache {
	if client == nil {
		return nil
	}
	return &RedisTagCache{
		client: client,
		script: redis.NewScript(invalidateTagScript),
	}
}

func (c *RedisTagCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, errors.New("tag cache not configured")
	}
	value, err := c.client.Get(ctx, entryKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisTagCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if c == nil || c.client == nil {
		return errors.New("tag cache not configured")
	}
	if key == "" {
		return errors.New("cache key is empty")
	}

	entryKey := entryKeyPrefix + key
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, entryKey, value, ttl)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		pipe.SAdd(ctx, tagKeyPrefix+tag, entryKey)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisTagCache) Invalidate(ctx context.Context, tags ...string) error {
	if c == nil || c.client == nil {
		return errors.New("tag cache not configured")
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if err := c.script.Run(ctx, c.client, []string{tagKeyPrefix + tag}).Err(); err != nil {
			return err
		}
	}
	return nil
}
