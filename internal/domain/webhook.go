package domain

import (
	"encoding/json"
	"time"
)

// WebhookSubscription is a tenant-owned endpoint subscribed to named events.
type WebhookSubscription struct {
	ID     string   `json:"id" db:"id"`
	UserID string   `json:"user_id" db:"user_id"`
	URL    string   `json:"url" db:"url"`
	Secret string   `json:"-" db:"secret"`
	Events []string `json:"events" db:"events"`
	Active bool     `json:"active" db:"active"`
}

// Subscribes reports whether the subscription is active and lists event.
func (s WebhookSubscription) Subscribes(event string) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookDeliveryLog is one row per delivery attempt, written regardless of
// outcome. ResponseStatus is 0 when the request never got a response.
type WebhookDeliveryLog struct {
	ID             string          `json:"id"`
	WebhookID      string          `json:"webhook_id"`
	Event          string          `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	Attempt        int             `json:"attempt"`
	ResponseStatus int             `json:"response_status"`
	ResponseBody   string          `json:"response_body"`
	Success        bool            `json:"success"`
	CreatedAt      time.Time       `json:"created_at"`
}
