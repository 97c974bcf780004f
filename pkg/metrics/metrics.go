package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhooksReceived counts inbound webhook requests per provider and
	// final outcome (applied, duplicate, rejected, dropped, error).
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billingcore",
		Subsystem: "webhooks",
		Name:      "received_total",
		Help:      "Inbound webhook requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	// EventsApplied counts billing events that mutated subscription
	// state, per provider and event kind.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billingcore",
		Subsystem: "billing",
		Name:      "events_applied_total",
		Help:      "Billing events applied to subscription state.",
	}, []string{"provider", "kind"})

	// AutomationExecutions counts automation action firings per
	// trigger and result.
	AutomationExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billingcore",
		Subsystem: "automation",
		Name:      "executions_total",
		Help:      "Automation action executions by trigger and result.",
	}, []string{"trigger", "result"})

	// TickDuration observes full automation tick latency.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "billingcore",
		Subsystem: "automation",
		Name:      "tick_duration_seconds",
		Help:      "Duration of full automation ticks.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler returns the /metrics endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
