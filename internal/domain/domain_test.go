package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderProfileFromAddress(t *testing.T) {
	tests := []struct {
		name    string
		profile SenderProfile
		want    string
	}{
		{"no custom domain", SenderProfile{SenderEmail: "news@mailer.io"}, "news@mailer.io"},
		{"unverified domain", SenderProfile{SenderEmail: "news@mailer.io", CustomDomain: "acme.com"}, "news@mailer.io"},
		{"verified domain", SenderProfile{SenderEmail: "news@mailer.io", CustomDomain: "acme.com", DomainVerified: true}, "news@acme.com"},
		{"local part kept", SenderProfile{SenderEmail: "jane.doe+x@mailer.io", CustomDomain: "acme.com", DomainVerified: true}, "jane.doe+x@acme.com"},
		{"malformed email", SenderProfile{SenderEmail: "nobody", CustomDomain: "acme.com", DomainVerified: true}, "nobody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.FromAddress())
		})
	}
}

func TestWebhookSubscriptionSubscribes(t *testing.T) {
	sub := WebhookSubscription{Active: true, Events: []string{"campaign.sent", "contact.created"}}
	assert.True(t, sub.Subscribes("campaign.sent"))
	assert.False(t, sub.Subscribes("campaign.opened"))

	sub.Active = false
	assert.False(t, sub.Subscribes("campaign.sent"))
}

func TestParseAnalyticsEventType(t *testing.T) {
	got, ok := ParseAnalyticsEventType("click")
	assert.True(t, ok)
	assert.Equal(t, EventClick, got)

	_, ok = ParseAnalyticsEventType("bounce")
	assert.False(t, ok)
}
