package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PLATFORM_FEE_BPS", "")
	t.Setenv("OFFER_WINDOW", "")
	t.Setenv("STORE_DRIVER", "")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 1000, cfg.Booking.FeeRateBasisPoints)
	assert.Equal(t, 12*time.Hour, cfg.Booking.OfferWindow)
	assert.Equal(t, DriverPostgres, cfg.Drivers.Store)
	assert.Equal(t, DriverRedis, cfg.Drivers.Coordination)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PLATFORM_FEE_BPS", "1250")
	t.Setenv("OFFER_WINDOW", "30m")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PAYMENT_SANDBOX_DECLINE", "true")
	t.Setenv("REDIS_DB", "3")

	cfg := LoadConfig()

	assert.Equal(t, 1250, cfg.Booking.FeeRateBasisPoints)
	assert.Equal(t, 30*time.Minute, cfg.Booking.OfferWindow)
	assert.Equal(t, 15*time.Second, cfg.Booking.SweepInterval)
	assert.Equal(t, DriverMemory, cfg.Drivers.Store)
	assert.True(t, cfg.Payment.SandboxDecline)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestGetEnvBool_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "not-a-bool")
	assert.True(t, getEnvBool("SOME_FLAG", true))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("CORS_ALLOWED_ORIGINS", nil))

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"*"}, getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}))
}
