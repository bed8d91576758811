package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Rate limiter backends.
const (
	RateLimitSliding = "sliding"
	RateLimitUlule   = "ulule"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv   string
	Port     string
	Timezone string
	Location *time.Location

	StoreDriver   string
	DatabaseURL   string
	DBAutoMigrate bool
	DBMaxConns    int
	RedisURL      string

	JWTSecret            string
	JWTIssuer            string
	AccessTokenTTL       time.Duration
	AdminUsername        string
	AdminPasswordHash    string
	VerifierUsername     string
	VerifierPasswordHash string

	CORSAllowedOrigins []string
	HTTPMaxBodyBytes   int64
	ShutdownTimeout    time.Duration

	PricingCacheTTL     time.Duration
	PricingFetchTimeout time.Duration
	IdempotencyTTL      time.Duration
	DashboardCacheTTL   time.Duration

	BookingRateLimitMax    int
	BookingRateLimitWindow time.Duration
	RateLimitBackend       string

	ReportArchiveTTL      time.Duration
	ReportScheduleDaily   string
	ReportScheduleWeekly  string
	ReportScheduleMonthly string
	WorkerConcurrency     int

	NotifyEmailEnabled bool
	NotifyEmailFrom    string
	AuditEnabled       bool

	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	Obs ObsConfig
}

// ObsConfig controls logging, metrics, tracing and profiling.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	EnablePrometheus bool
	EnableTracing    bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	EnablePprof      bool
	PprofUser        string
	PprofPassword    string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:   valueOrDefault(k.String("APP_ENV"), "development"),
		Port:     valueOrDefault(k.String("PORT"), "8080"),
		Timezone: valueOrDefault(k.String("APP_TIMEZONE"), "Asia/Kathmandu"),

		StoreDriver:   strings.ToLower(valueOrDefault(k.String("STORE_DRIVER"), StoreMemory)),
		DatabaseURL:   strings.TrimSpace(k.String("DATABASE_URL")),
		DBAutoMigrate: parseBool(k.String("DB_AUTO_MIGRATE")),
		DBMaxConns:    parseInt(k.String("DB_MAX_CONNS"), 10),
		RedisURL:      strings.TrimSpace(k.String("REDIS_URL")),

		JWTSecret:            k.String("JWT_SECRET"),
		JWTIssuer:            valueOrDefault(k.String("JWT_ISSUER"), "parkconnect"),
		AccessTokenTTL:       parseDuration(k.String("ACCESS_TOKEN_TTL"), "8h"),
		AdminUsername:        valueOrDefault(k.String("ADMIN_USERNAME"), "admin"),
		AdminPasswordHash:    strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),
		VerifierUsername:     valueOrDefault(k.String("VERIFIER_USERNAME"), "gate"),
		VerifierPasswordHash: strings.TrimSpace(k.String("VERIFIER_PASSWORD_HASH")),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		HTTPMaxBodyBytes:   int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 64<<10)),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),

		PricingCacheTTL:     parseDuration(k.String("PRICING_CACHE_TTL"), "5m"),
		PricingFetchTimeout: parseDuration(k.String("PRICING_FETCH_TIMEOUT"), "2s"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		DashboardCacheTTL:   parseDuration(k.String("DASHBOARD_CACHE_TTL"), "30s"),

		BookingRateLimitMax:    parseInt(k.String("BOOKING_RATE_LIMIT_MAX"), 10),
		BookingRateLimitWindow: parseDuration(k.String("BOOKING_RATE_LIMIT_WINDOW"), "1m"),
		RateLimitBackend:       strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), RateLimitSliding)),

		ReportArchiveTTL:      parseDuration(k.String("REPORT_ARCHIVE_TTL"), "2160h"),
		ReportScheduleDaily:   valueOrDefault(k.String("REPORT_SCHEDULE_DAILY"), "55 23 * * *"),
		ReportScheduleWeekly:  strings.TrimSpace(k.String("REPORT_SCHEDULE_WEEKLY")),
		ReportScheduleMonthly: strings.TrimSpace(k.String("REPORT_SCHEDULE_MONTHLY")),
		WorkerConcurrency:     parseInt(k.String("WORKER_CONCURRENCY"), 4),

		NotifyEmailEnabled: parseBool(k.String("NOTIFY_EMAIL_ENABLED")),
		NotifyEmailFrom:    valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "tickets@parkconnect.np"),
		AuditEnabled:       parseBoolDefault(k.String("AUDIT_ENABLED"), true),

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "5s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "parkconnect"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING")),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			EnablePprof:      parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("OBS_PPROF_USER")),
			PprofPassword:    k.String("OBS_PPROF_PASSWORD"),
		},
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q", StoreMemory, StorePostgres)
	}
	switch cfg.RateLimitBackend {
	case RateLimitSliding, RateLimitUlule:
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q", RateLimitSliding, RateLimitUlule)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.BreakerFailureRatio <= 0 || cfg.BreakerFailureRatio > 1 {
		return nil, errors.New("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
