package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
)

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  frontend_url: https://app.example.com
jwt:
  secret: file-secret
stripe:
  secret_key: sk_test_file
  webhook_secret: whsec_file
billing:
  idempotency_ttl: 30m
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("BILLING_STRIPE_SECRET_KEY", "sk_test_env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk_test_env", cfg.Stripe.SecretKey)
	assert.Equal(t, "whsec_file", cfg.Stripe.WebhookSecret)
	assert.Equal(t, 30*time.Minute, cfg.Billing.IdempotencyTTL)
	assert.Equal(t, time.Minute, cfg.Billing.IdempotencyLease)
	assert.Equal(t, 10*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, 720*time.Hour, cfg.Billing.EventRetention)
	assert.Equal(t, "billing", cfg.Log.Service)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTP.Addr())
}

func TestLoadConfig_MissingSecretsFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: billing\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadPlanTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - price_id: price_basic
    plan: basic
  - price_id: price_test
    plan: test
`), 0o600))

	table, err := LoadPlanTable(path)
	require.NoError(t, err)

	plan, ok := table.PlanForPrice("price_test")
	assert.True(t, ok)
	assert.Equal(t, entity.PlanTest, plan)

	_, err = LoadPlanTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
