package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the L2 backend for multi-process deployments where a
// file snapshot per process would diverge. Invalidation tags are modeled
// as a Redis set per tag, pointing back at the cache keys carrying it.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to url (a redis:// connection string).
func NewRedisBackend(url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (r *RedisBackend) key(k string) string  { return r.prefix + ":v:" + k }
func (r *RedisBackend) tagKey(t string) string { return r.prefix + ":t:" + t }

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// TagKeys registers key as carrying tag, so a later DeleteByTag can find it.
func (r *RedisBackend) TagKeys(ctx context.Context, tag string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return r.client.SAdd(ctx, r.tagKey(tag), members...).Err()
}

func (r *RedisBackend) DeleteByTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, r.tagKey(tag)).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.key(k))
	}
	pipe.Del(ctx, r.tagKey(tag))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
