package server

import (
	"context"
	"errors"
	"time"

	"classifieds/internal/database"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 5 * time.Second

var errRedisNotConfigured = errors.New("redis not configured")

type dependencyCheck struct {
	name string
	run  func(context.Context) error
}

type checkResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// LivenessCheck answers as long as the process serves HTTP.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now().UTC()})
}

// ReadinessCheck checks the database and Redis. Both are required: Redis
// carries the report rate limit and the admin event fan-out.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	checks := []dependencyCheck{
		{name: "database", run: func(ctx context.Context) error { return database.Ping(ctx, s.db) }},
		{name: "redis", run: func(ctx context.Context) error {
			if s.redis == nil {
				return errRedisNotConfigured
			}
			return s.redis.Ping(ctx).Err()
		}},
	}

	ready := true
	results := make(map[string]checkResult, len(checks))
	for _, check := range checks {
		start := time.Now()
		err := check.run(ctx)
		res := checkResult{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
		switch {
		case errors.Is(err, errRedisNotConfigured):
			res.Status = "unavailable"
		case err != nil:
			res.Status = "unhealthy"
		}
		if res.Status != "healthy" {
			ready = false
		}
		results[check.name] = res
	}

	status, overall := fiber.StatusOK, "healthy"
	if !ready {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": results,
		"time":   time.Now().UTC(),
	})
}
