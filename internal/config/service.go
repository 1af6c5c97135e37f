package config

import "time"

type ServiceConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	// FrontendURL is the base for checkout success/cancel and portal return URLs.
	FrontendURL string `mapstructure:"frontend_url" validate:"required,url"`
}

// JWTConfig configures verification of tokens issued by the account service.
type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

type StripeConfig struct {
	SecretKey        string        `mapstructure:"secret_key" validate:"required"`
	WebhookSecret    string        `mapstructure:"webhook_secret" validate:"required"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance" validate:"gt=0"`
	// MaxNetworkRetries applies to idempotent API calls only.
	MaxNetworkRetries int64 `mapstructure:"max_network_retries" validate:"gte=0"`
}

type BillingConfig struct {
	PlansFile           string        `mapstructure:"plans_file" validate:"required"`
	EventRetention      time.Duration `mapstructure:"event_retention" validate:"gt=0"`
	LedgerPurgeSchedule string        `mapstructure:"ledger_purge_schedule" validate:"required"`
	IdempotencyTTL      time.Duration `mapstructure:"idempotency_ttl" validate:"gt=0"`
	IdempotencyLease    time.Duration `mapstructure:"idempotency_lease" validate:"gt=0,ltefield=IdempotencyTTL"`
	IdempotencyWait     time.Duration `mapstructure:"idempotency_wait" validate:"gt=0"`
	WebhookTimeout      time.Duration `mapstructure:"webhook_timeout" validate:"gt=0"`
	MaxWebhookBody      int64         `mapstructure:"max_webhook_body" validate:"gt=0"`
}
