package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const QualityScoreKeyPrefix = "listing:%d:quality"

// DefaultQualityScoreTTL applies when no TTL is configured.
const DefaultQualityScoreTTL = 30 * time.Minute

func QualityScoreKey(listingID uint) string {
	return fmt.Sprintf(QualityScoreKeyPrefix, listingID)
}

// generationTTL outlives any fill, so a counter never expires under one.
const generationTTL = time.Hour

// Invalidate drops key and bumps its counter so fills already in flight
// are not stored.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	genKey := generationKey(key)
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
}

// InvalidateListing drops every cached value derived from the listing.
func InvalidateListing(ctx context.Context, listingID uint) {
	Invalidate(ctx, QualityScoreKey(listingID))
}
