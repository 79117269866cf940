package domain

import "time"

// AnalyticsEventType enumerates delivery telemetry events.
type AnalyticsEventType string

const (
	EventSent  AnalyticsEventType = "sent"
	EventOpen  AnalyticsEventType = "open"
	EventClick AnalyticsEventType = "click"
)

// ParseAnalyticsEventType returns the event type for s and whether it is known.
func ParseAnalyticsEventType(s string) (AnalyticsEventType, bool) {
	switch t := AnalyticsEventType(s); t {
	case EventSent, EventOpen, EventClick:
		return t, true
	}
	return "", false
}

// AnalyticsEvent is an append-only telemetry row. Duplicates are expected;
// tracking is best-effort, not exactly-once.
type AnalyticsEvent struct {
	ID          string             `json:"id"`
	CampaignID  string             `json:"campaign_id"`
	RecipientID string             `json:"recipient_id,omitempty"`
	EventType   AnalyticsEventType `json:"event_type"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
