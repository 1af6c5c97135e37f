package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics records webhook and session outcomes.
type BillingMetrics interface {
	IncWebhookEvent(category, outcome string)
	IncSignatureFailure()
	IncSession(kind, outcome string)
	IncIdempotencyReplay(operation string)
	AddLedgerPurged(n int64)
}

type billingMetrics struct {
	webhookEvents     *prometheus.CounterVec
	signatureFailures prometheus.Counter
	sessions          *prometheus.CounterVec
	replays           *prometheus.CounterVec
	ledgerPurged      prometheus.Counter
}

// NewBillingMetrics registers the billing collectors on registry.
func NewBillingMetrics(registry prometheus.Registerer) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhook_events_total",
				Help: "Webhook events by category and outcome (processed, duplicate, ignored, unlinked, conflict, failed)",
			},
			[]string{"category", "outcome"},
		),
		signatureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_webhook_signature_failures_total",
			Help: "Webhook requests rejected for an invalid signature",
		}),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_sessions_total",
				Help: "Checkout and portal session requests by outcome",
			},
			[]string{"kind", "outcome"},
		),
		replays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_idempotency_replays_total",
				Help: "Requests answered from the idempotency cache",
			},
			[]string{"operation"},
		),
		ledgerPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_ledger_purged_total",
			Help: "Expired processed-event entries deleted",
		}),
	}
}

func (m *billingMetrics) IncWebhookEvent(category, outcome string) {
	m.webhookEvents.WithLabelValues(category, outcome).Inc()
}

func (m *billingMetrics) IncSignatureFailure() {
	m.signatureFailures.Inc()
}

func (m *billingMetrics) IncSession(kind, outcome string) {
	m.sessions.WithLabelValues(kind, outcome).Inc()
}

func (m *billingMetrics) IncIdempotencyReplay(operation string) {
	m.replays.WithLabelValues(operation).Inc()
}

func (m *billingMetrics) AddLedgerPurged(n int64) {
	m.ledgerPurged.Add(float64(n))
}
