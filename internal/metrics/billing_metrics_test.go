package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBillingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBillingMetrics(reg).(*billingMetrics)

	m.IncWebhookEvent("invoice_paid", "processed")
	m.IncWebhookEvent("invoice_paid", "processed")
	m.IncWebhookEvent("invoice_paid", "duplicate")
	m.IncSignatureFailure()
	m.IncSession("checkout", "created")
	m.IncIdempotencyReplay("checkout")
	m.AddLedgerPurged(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("invoice_paid", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("invoice_paid", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signatureFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ledgerPurged))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
}
