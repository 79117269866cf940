package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
)

// Campaign is a single message sent to every subscribed contact of a list.
// Body is HTML and may contain personalization tokens.
type Campaign struct {
	ID              string         `json:"id" db:"id"`
	UserID          string         `json:"user_id" db:"user_id"`
	ListID          string         `json:"list_id" db:"list_id"`
	Subject         string         `json:"subject" db:"subject"`
	Body            string         `json:"body" db:"body"`
	Status          CampaignStatus `json:"status" db:"status"`
	RecipientsCount int            `json:"recipients_count" db:"recipients_count"`
	SentAt          *time.Time     `json:"sent_at" db:"sent_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true once the campaign has been dispatched.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent
}
