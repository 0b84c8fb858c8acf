// Package config loads application configuration from environment
// variables. A .env file, when present, is loaded by the command before
// any loader runs.
package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the core runtime configuration.
type Config struct {
	Env            string // application environment (e.g. "dev", "production")
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // HS256 signing secret
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int
	AutoMigrate    bool // apply migrations on startup
}

// Load reads the required variables and reports all missing ones at once.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Env:            e.must("APP_ENV"),
		Port:           e.must("APP_PORT"),
		DBUser:         e.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         e.must("DB_HOST"),
		DBPort:         e.must("DB_PORT"),
		DBName:         e.must("DB_NAME"),
		JWTSecret:      e.must("JWT_SECRET"),
		AccessTTLMin:   e.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: e.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     e.mustInt("BCRYPT_COST"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", false),
	}
	return cfg, e.err()
}

// LedgerConfig holds the utility tariff and payment settlement settings.
type LedgerConfig struct {
	UnitRate         decimal.Decimal
	WaterCharge      decimal.Decimal
	GarbageCharge    decimal.Decimal
	DepositTolerance decimal.Decimal
	GatewayTimeout   time.Duration
}

// LoadLedgerConfig reads the tariff; unset variables take the defaults
// 12 per unit, 1500 water, 500 garbage and a 0.01 deposit tolerance.
func LoadLedgerConfig() (LedgerConfig, error) {
	var e env
	cfg := LedgerConfig{
		UnitRate:         e.decimal("ELECTRICITY_UNIT_RATE", decimal.NewFromInt(12)),
		WaterCharge:      e.decimal("WATER_CHARGE", decimal.NewFromInt(1500)),
		GarbageCharge:    e.decimal("GARBAGE_CHARGE", decimal.NewFromInt(500)),
		DepositTolerance: e.decimal("DEPOSIT_TOLERANCE", decimal.RequireFromString("0.01")),
		GatewayTimeout:   envDur("GATEWAY_TIMEOUT", 10*time.Second),
	}
	for key, v := range map[string]decimal.Decimal{
		"ELECTRICITY_UNIT_RATE": cfg.UnitRate,
		"WATER_CHARGE":          cfg.WaterCharge,
		"GARBAGE_CHARGE":        cfg.GarbageCharge,
		"DEPOSIT_TOLERANCE":     cfg.DepositTolerance,
	} {
		if v.IsNegative() {
			e.errs = append(e.errs, key+" must not be negative")
		}
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return cfg, e.err()
}

// QueueConfig configures the status-change publisher and audit consumer.
type QueueConfig struct {
	URL         string // empty disables publishing and consuming
	Queue       string
	AuditLogDir string
}

func LoadQueueConfig() QueueConfig {
	return QueueConfig{
		URL:         os.Getenv("RABBITMQ_URL"),
		Queue:       envStr("RABBITMQ_QUEUE", "booking.status_changed"),
		AuditLogDir: envStr("AUDIT_LOG_DIR", "logs"),
	}
}
