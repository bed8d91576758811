package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/audit"
	"github.com/noah-isme/parkconnect-api/internal/auth"
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/config"
	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/obs"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
	"github.com/noah-isme/parkconnect-api/internal/ratelimit"
	"github.com/noah-isme/parkconnect-api/internal/records"
	"github.com/noah-isme/parkconnect-api/internal/repo"
	"github.com/noah-isme/parkconnect-api/internal/report"
)

// ErrNoRedis is returned by builders that cannot run without REDIS_URL.
var ErrNoRedis = errors.New("app: REDIS_URL is required")

// Store is everything the services need from the record store.
type Store interface {
	booking.Store
	pricing.Store
	events.Store
	audit.Store
	Ping(ctx context.Context) error
}

// Dependencies holds the shared infrastructure both binaries start from.
type Dependencies struct {
	Store Store
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// Close releases connections opened by Build.
func (d *Dependencies) Close(logger zerolog.Logger) {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// Build opens Redis (when configured) and the record store selected by
// STORE_DRIVER.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}
	rdb, err := OpenRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Redis = rdb

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.DBAutoMigrate {
			if err := repo.Migrate(cfg.DatabaseURL); err != nil {
				deps.Close(logger)
				return nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := OpenPostgres(ctx, cfg)
		if err != nil {
			deps.Close(logger)
			return nil, err
		}
		deps.DB = pool
		deps.Store = &repo.Postgres{Pool: pool}
	default:
		seed, err := repo.DemoSeed()
		if err != nil {
			deps.Close(logger)
			return nil, err
		}
		deps.Store = repo.NewMemory(seed)
		logger.Warn().Int("bookings", len(seed.Bookings)).Msg("using in-memory record store with demo data")
	}
	return deps, nil
}

// OpenRedis connects to REDIS_URL with tracing and metrics instrumentation.
// It returns a nil client when REDIS_URL is empty.
func OpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; caching, idempotency and background jobs are disabled")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if cfg.Obs.EnableTracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.Obs.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// OpenPostgres opens a traced pgx pool against DATABASE_URL.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "parkconnect-api"
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewBookingLimiter picks the rate limiter for booking submission. The
// sliding window needs Redis; without it the in-memory fixed window is used.
func NewBookingLimiter(cfg *config.Config, rdb *redis.Client) (ratelimit.Allower, error) {
	const prefix = "rl:booking:"
	if cfg.RateLimitBackend == config.RateLimitSliding && rdb != nil {
		return ratelimit.SlidingWindow{Client: rdb, Prefix: prefix}, nil
	}
	return ratelimit.NewFixed(rdb, prefix)
}

// AsynqRedis converts REDIS_URL into asynq connection options.
func AsynqRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	if cfg.RedisURL == "" {
		return nil, ErrNoRedis
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri for tasks: %w", err)
	}
	return opt, nil
}

// StaffAccounts returns the configured admin and verifier logins.
func StaffAccounts(cfg *config.Config) []auth.Account {
	return []auth.Account{
		{Username: cfg.AdminUsername, Role: auth.RoleAdmin, PasswordHash: cfg.AdminPasswordHash},
		{Username: cfg.VerifierUsername, Role: auth.RoleVerifier, PasswordHash: cfg.VerifierPasswordHash},
	}
}

// ReportSchedules maps each report kind to its configured cron spec.
func ReportSchedules(cfg *config.Config) report.Schedules {
	return report.Schedules{
		records.ReportDaily:   cfg.ReportScheduleDaily,
		records.ReportWeekly:  cfg.ReportScheduleWeekly,
		records.ReportMonthly: cfg.ReportScheduleMonthly,
	}
}

// HashPassword produces the argon2id hash stored in *_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("app: empty password")
	}
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}
