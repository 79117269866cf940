package campaign

import (
	"context"
	"time"

	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/mailapi"
)

// Repository is the campaign store. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Get returns a campaign owned by userID. Returns an apperr NotFound
	// error if it doesn't exist or belongs to another tenant.
	Get(ctx context.Context, userID, id string) (*domain.Campaign, error)

	// MarkSent is the single terminal update: status=sent, sent_at and
	// recipients_count.
	MarkSent(ctx context.Context, userID, id string, sentAt time.Time, recipients int) error
}

// RecipientSource resolves the subscribed contacts of a list.
type RecipientSource interface {
	Subscribed(ctx context.Context, userID, listID string) ([]domain.Recipient, error)
}

// ProfileStore reads the tenant's sender profile. A tenant without a profile
// yields (nil, nil).
type ProfileStore interface {
	SenderProfile(ctx context.Context, userID string) (*domain.SenderProfile, error)
}

// Mailer submits one message. *mailapi.Client satisfies it.
type Mailer interface {
	Ready(ctx context.Context) error
	SendEmail(ctx context.Context, msg mailapi.Message) (string, error)
}

// Injector adds open and click tracking to a rendered body.
type Injector interface {
	Inject(html, campaignID, recipientID string) string
}
