package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/metrics"
	"wren/pkg/retry"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// InitRedis connects the shared cache tier. The probe retries with backoff
// so a router starting alongside its Redis does not flap on boot ordering;
// a Redis that stays down past the probe window fails the boot.
func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	redisCfg := dc.Config.Registry.Cache.Redis
	if redisCfg.Host == "" {
		return nil, nil // shared cache tier is optional
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	probe := func() error {
		return rdb.Ping(ctx).Err()
	}

	onRetry := func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt("bootstrap", "redis_ping")
		dc.Logger.Warnw("Redis not reachable yet, retrying",
			"attempt", attempt,
			"next_delay", nextDelay.String(),
			"error", err,
		)
	}

	if err := retry.RetryWithCallback(ctx, retry.ProbePolicy(), probe, onRetry); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Info("Redis connected successfully")
	return rdb, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(redis *redis.Client) []error {
	var errs []error

	if redis != nil {
		if err := redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	return errs
}
