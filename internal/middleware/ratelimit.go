package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRateLimitStore = errors.New("rate limit store not configured")

// Quota is the state of one fixed-window bucket after a hit.
type Quota struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

func rateLimitKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// Hit counts one request against the resource/id bucket. The window starts
// at the first hit and the bucket expires with it. Test and development
// environments always get an unlimited quota.
func Hit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Quota, error) {
	if rateLimitBypassed() {
		return Quota{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if rdb == nil {
		return Quota{}, errNoRateLimitStore
	}

	key := rateLimitKey(resource, id)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return Quota{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	resetIn := ttl.Val()
	if resetIn <= 0 {
		// New bucket, or one left without expiry by an interrupted writer.
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return Quota{}, fmt.Errorf("rate limit %s expiry: %w", key, err)
		}
		resetIn = window
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

// CheckRateLimit reports whether one more request on resource/id fits in limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	q, err := Hit(ctx, rdb, resource, id, limit, window)
	if err != nil {
		return false, err
	}
	return q.Allowed, nil
}

// RateLimit limits a route to limit requests per window for each caller:
// the authenticated user when there is one, the client IP otherwise.
// Store failures let the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy. The bucket
// is named after name[0] when given, after the request path otherwise.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			caller = "user:" + uid.String()
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		q, err := Hit(c.UserContext(), rdb, resource, caller, limit, window)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				slog.String("resource", resource),
				slog.Bool("fail_closed", policy == FailClosed),
				slog.String("error", err.Error()))
			if policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
