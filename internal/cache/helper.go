package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetJSON when the key does not exist or no
// client is configured.
var ErrCacheMiss = errors.New("cache miss")

// GetJSON decodes the value stored at key into dest.
func GetJSON(ctx context.Context, key string, dest interface{}) error {
	if client == nil {
		return ErrCacheMiss
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// SetJSON stores value at key as JSON with the given TTL.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dest from the cache when present; otherwise it runs load,
// which must populate dest, and stores the result. The store is skipped when
// key was invalidated while load ran, so a value read before a write never
// outlives it. Cache failures never fail the call.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if err := GetJSON(ctx, key, dest); err == nil {
		return nil
	}

	gen, ok := generation(ctx, key)
	if err := load(); err != nil {
		return err
	}
	if ok {
		_ = setIfGeneration(ctx, key, gen, dest, ttl)
	}
	return nil
}

// errStaleFill aborts a fill whose key was invalidated after the read.
var errStaleFill = errors.New("cache: key invalidated during fill")

func generationKey(key string) string {
	return key + ":gen"
}

// generation reads the invalidation counter of key. A missing counter is 0.
func generation(ctx context.Context, key string) (int64, bool) {
	if client == nil {
		return 0, false
	}
	gen, err := client.Get(ctx, generationKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false
	}
	return gen, true
}

// setIfGeneration stores value at key only while its counter still equals
// gen. WATCH makes the check and the SET atomic against Invalidate.
func setIfGeneration(ctx context.Context, key string, gen int64, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	genKey := generationKey(key)
	return client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, genKey)
}
