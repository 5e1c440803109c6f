// Package metrics registers the prometheus collectors for the order core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reconciliation result labels.
const (
	ResultSuccess          = "success"
	ResultFailed           = "failed"
	ResultAlreadyProcessed = "already_processed"
	ResultAmountMismatch   = "amount_mismatch"
)

// Reconciliation path labels.
const (
	PathVerify  = "verify"
	PathWebhook = "webhook"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaad_orders_created_total",
		Help: "Orders persisted in payment_pending.",
	})

	ReconciliationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaad_payment_reconciliations_total",
		Help: "Payment reconciliation attempts by path and result.",
	}, []string{"path", "result"})

	AutoRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaad_orders_auto_rejected_total",
		Help: "Orders auto-rejected after the response window expired.",
	})

	WebhookParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaad_webhook_parse_failures_total",
		Help: "Webhook payloads no extraction strategy could read.",
	})

	PushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swaad_push_notification_failures_total",
		Help: "Push notification deliveries that failed (logged, not surfaced).",
	})
)

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
