package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Peluchemoreno/esti-mate-billing/pkg/config"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/logger"
)

// ServiceName is also the env prefix: BILLING_STRIPE_SECRET_KEY etc.
const ServiceName = "billing"

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      logger.Config  `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Billing  BillingConfig  `mapstructure:"billing"`
}

// LoadConfig reads configs/{APP_ENV}/billing.yaml (or $CONFIG_PATH), applies
// BILLING_* environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	v, err := config.Load(ServiceName, defaults())
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Service = cfg.Service.Name

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings. The service refuses to start without
// processor credentials or a JWT secret.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaults registers every key so that env overrides work without a file.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":         ServiceName,
		"service.environment":  "development",
		"service.version":      "dev",
		"service.frontend_url": "http://localhost:5173",

		"database.host":               "localhost",
		"database.port":               5432,
		"database.name":               "billing",
		"database.user":               "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     20,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "30m",
		"database.conn_max_idle_time": "5m",

		"redis.addr":     "localhost:6379",
		"redis.password": "",
		"redis.db":       0,

		"server.http.host": "0.0.0.0",
		"server.http.port": 8080,
		"server.grpc.host": "0.0.0.0",
		"server.grpc.port": 9090,

		"log.level":  "info",
		"log.format": "json",
		"log.output": "stdout",

		"jwt.secret": "",

		"stripe.secret_key":          "",
		"stripe.webhook_secret":      "",
		"stripe.timeout":             "10s",
		"stripe.webhook_tolerance":   "5m",
		"stripe.max_network_retries": 2,

		"billing.plans_file":            "configs/plans.yaml",
		"billing.event_retention":       "720h",
		"billing.ledger_purge_schedule": "@hourly",
		"billing.idempotency_ttl":       "1h",
		"billing.idempotency_lease":     "1m",
		"billing.idempotency_wait":      "10s",
		"billing.webhook_timeout":       "15s",
		"billing.max_webhook_body":      1 << 20,
	}
}
