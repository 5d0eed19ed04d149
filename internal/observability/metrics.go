// Package observability bundles the Prometheus collectors and the
// OpenTelemetry bootstrap used across the service.
//
// This file defines the domain-level collectors: webhook delivery
// outcomes, raw delivery attempts, and reminder firings. HTTP traffic
// metrics live in the middleware layer.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// deliveries counts finished webhook deliveries by outcome:
	// success, failed, or rate_limited.
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of webhook deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	// deliveryAttempts counts individual HTTP attempts, including retries.
	deliveryAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "Total number of webhook delivery HTTP attempts, retries included.",
		},
	)

	// remindersTriggered counts reminder firings (manual and due-scan).
	remindersTriggered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_triggered_total",
			Help: "Total number of reminder firings.",
		},
	)
)

func init() {
	prometheus.MustRegister(deliveries, deliveryAttempts, remindersTriggered)
}

// RecordDelivery increments the delivery counter for the given outcome
// ("success", "failed", or "rate_limited").
func RecordDelivery(outcome string) {
	deliveries.WithLabelValues(outcome).Inc()
}

// RecordDeliveryAttempt increments the raw attempt counter.
func RecordDeliveryAttempt() {
	deliveryAttempts.Inc()
}

// RecordReminderTriggered increments the reminder firing counter.
func RecordReminderTriggered() {
	remindersTriggered.Inc()
}
