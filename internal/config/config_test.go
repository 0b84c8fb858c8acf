package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "root", "DB_HOST": "localhost",
		"DB_PORT": "3306", "DB_NAME": "rental", "JWT_SECRET": "s3cret",
		"ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadReportsEveryMissingKey(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BCRYPT_COST", "ten")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoadLedgerConfigDefaults(t *testing.T) {
	cfg, err := LoadLedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, "12", cfg.UnitRate.String())
	assert.Equal(t, "1500", cfg.WaterCharge.String())
	assert.Equal(t, "500", cfg.GarbageCharge.String())
	assert.Equal(t, "0.01", cfg.DepositTolerance.String())
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
}

func TestLoadLedgerConfigOverrides(t *testing.T) {
	t.Setenv("ELECTRICITY_UNIT_RATE", "13.5")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	cfg, err := LoadLedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, "13.5", cfg.UnitRate.String())
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)

	t.Setenv("WATER_CHARGE", "-1")
	_, err = LoadLedgerConfig()
	assert.ErrorContains(t, err, "WATER_CHARGE")

	t.Setenv("WATER_CHARGE", "lots")
	_, err = LoadLedgerConfig()
	assert.ErrorContains(t, err, "invalid decimal")
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, "route_query", cfg.KeyStrategy)
}
