package campaign

import "github.com/ignite/outbound/internal/apperr"

// Errors returned by Dispatch before any message is submitted.
var (
	ErrMissingCampaignID = apperr.Validation("campaignId is required")
	ErrNoRecipients      = apperr.Validation("no recipients")
	ErrAlreadySent       = apperr.Validation("campaign already sent")
	ErrAlreadySending    = apperr.Validation("campaign is already being dispatched")
	ErrNoSender          = apperr.Configuration("no sender address configured", nil)
)
