// Package bootstrap wires the shared runtime (database, Redis, tracing and
// services) for the server and the maintenance commands.
package bootstrap

import (
	"fmt"

	"classifieds/internal/cache"
	"classifieds/internal/config"
	"classifieds/internal/database"
	"classifieds/internal/observability"
	"classifieds/internal/repository"
	"classifieds/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services are the domain services built over one database handle.
type Services struct {
	Quality   *service.QualityService
	Moderator *service.SpamService
	Reports   *service.ReportService
	Admin     *service.AdminModerationService
}

// InitRuntime connects to the database and Redis. An unreachable Redis
// yields a nil client; callers run without cache and pub/sub.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return db, cache.GetClient(), nil
}

// NewServices builds every domain service with the configured thresholds
// and cache lifetime.
func NewServices(cfg *config.Config, db *gorm.DB) Services {
	users := repository.NewUserRepository(db)
	listings := repository.NewListingRepository(db)
	reports := repository.NewReportRepository(db)
	scores := repository.NewQualityScoreRepository(db)

	moderator := service.NewSpamService(listings, reports, service.ModerationThresholds{
		SpamReports:  cfg.SpamReportThreshold,
		FraudReports: cfg.FraudReportThreshold,
	})

	return Services{
		Quality:   service.NewQualityService(listings, scores, cfg.QualityScoreCacheTTL()),
		Moderator: moderator,
		Reports:   service.NewReportService(reports, listings, users, moderator),
		Admin:     service.NewAdminModerationService(reports, listings, users, moderator),
	}
}

// TracingConfig maps application config onto the tracer settings.
func TracingConfig(cfg *config.Config, serviceName string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	}
}
