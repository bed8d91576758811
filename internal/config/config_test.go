package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"JWT_SECRET":   "secret",
		"STORE_DRIVER": "",
		"DATABASE_URL": "",
		"REDIS_URL":    "",
		"APP_TIMEZONE": "",
		"PORT":         "",
	})
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, "Asia/Kathmandu", cfg.Location.String())
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, 5*time.Minute, cfg.PricingCacheTTL)
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"JWT_SECRET":   "secret",
		"STORE_DRIVER": "postgres",
		"DATABASE_URL": "",
	})
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := LoadForTests(map[string]string{"JWT_SECRET": ""})
	require.ErrorContains(t, err, "JWT_SECRET")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "mongo"})
	require.ErrorContains(t, err, "STORE_DRIVER")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "s", "APP_TIMEZONE": "Mars/Olympus"})
	require.ErrorContains(t, err, "APP_TIMEZONE")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "s", "RATE_LIMIT_BACKEND": "token-bucket"})
	require.ErrorContains(t, err, "RATE_LIMIT_BACKEND")
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"JWT_SECRET":                "secret",
		"PORT":                      ":9090",
		"BOOKING_RATE_LIMIT_MAX":    "3",
		"BOOKING_RATE_LIMIT_WINDOW": "30s",
		"CORS_ALLOWED_ORIGINS":      "https://a.example, https://b.example,",
		"NOTIFY_EMAIL_ENABLED":      "yes",
		"OBS_ENABLE_PROMETHEUS":     "false",
		"PRICING_CACHE_TTL":         "not-a-duration",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 3, cfg.BookingRateLimitMax)
	require.Equal(t, 30*time.Second, cfg.BookingRateLimitWindow)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.NotifyEmailEnabled)
	require.False(t, cfg.Obs.EnablePrometheus)
	require.Equal(t, 5*time.Minute, cfg.PricingCacheTTL)
}
