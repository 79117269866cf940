// Package metrics holds the Prometheus collectors for the outbound service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// campaignRecipientsTotal counts per-recipient submission outcomes.
	// Labels:
	// - result: sent | failed
	campaignRecipientsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbound",
			Subsystem: "campaign",
			Name:      "recipients_total",
			Help:      "Campaign recipient submissions by result.",
		},
		[]string{"result"},
	)

	// webhookAttemptsTotal counts webhook delivery attempts.
	// Labels:
	// - result: success | failure | error
	webhookAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbound",
			Subsystem: "webhook",
			Name:      "attempts_total",
			Help:      "Webhook delivery attempts by result.",
		},
		[]string{"result"},
	)

	// trackingEventsTotal counts tracking hits.
	// Labels:
	// - type: open | click | other
	// - result: recorded | failed | ignored
	trackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outbound",
			Subsystem: "tracking",
			Name:      "events_total",
			Help:      "Tracking events by type and record result.",
		},
		[]string{"type", "result"},
	)
)

// IncCampaignRecipient increments the recipient outcome counter.
func IncCampaignRecipient(result string) {
	if result == "" {
		result = "unknown"
	}
	campaignRecipientsTotal.WithLabelValues(result).Inc()
}

// IncWebhookAttempt increments the webhook attempt counter.
func IncWebhookAttempt(result string) {
	if result == "" {
		result = "unknown"
	}
	webhookAttemptsTotal.WithLabelValues(result).Inc()
}

// IncTrackingEvent increments the tracking event counter.
func IncTrackingEvent(eventType, result string) {
	switch eventType {
	case "open", "click":
	default:
		eventType = "other"
	}
	if result == "" {
		result = "unknown"
	}
	trackingEventsTotal.WithLabelValues(eventType, result).Inc()
}
