package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/auth"
	"github.com/ignite/outbound/internal/identity"
	"github.com/ignite/outbound/internal/pkg/httputil"
	"github.com/ignite/outbound/internal/pkg/logger"
	"github.com/ignite/outbound/internal/service/campaign"
)

// CampaignSender dispatches a campaign for a tenant.
type CampaignSender interface {
	Dispatch(ctx context.Context, campaignID, userID string) (*campaign.Result, error)
}

// EventFanout delivers an event to a tenant's webhook subscriptions.
type EventFanout interface {
	Fanout(ctx context.Context, event, userID string, data any) (int, error)
}

// DomainVerifier manages a tenant's sending domain.
type DomainVerifier interface {
	Add(ctx context.Context, userID, domain string) (*identity.AddResult, error)
	Check(ctx context.Context, userID string) (*identity.CheckResult, error)
	Remove(ctx context.Context, userID string) error
}

// Handlers serves the authenticated endpoints. Every handler expects
// auth.RequireAuth to have run.
type Handlers struct {
	campaigns CampaignSender
	webhooks  EventFanout
	domains   DomainVerifier
	log       *logger.Logger
}

func NewHandlers(campaigns CampaignSender, webhooks EventFanout, domains DomainVerifier) *Handlers {
	return &Handlers{
		campaigns: campaigns,
		webhooks:  webhooks,
		domains:   domains,
		log:       logger.New("api"),
	}
}

type sendCampaignRequest struct {
	CampaignID string `json:"campaignId" validate:"required"`
}

type sendCampaignResponse struct {
	Success bool     `json:"success"`
	Sent    int      `json:"sent"`
	Errors  []string `json:"errors"`
}

// HandleSendCampaign dispatches a campaign owned by the caller.
//
//	POST /send-campaign {"campaignId": "..."}
func (h *Handlers) HandleSendCampaign(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req sendCampaignRequest
	if !httputil.DecodeValid(w, r, &req) {
		return
	}

	res, err := h.campaigns.Dispatch(r.Context(), strings.TrimSpace(req.CampaignID), caller.UserID)
	if err != nil {
		h.log.Warn("send-campaign failed", "campaign_id", req.CampaignID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, sendCampaignResponse{Success: true, Sent: res.Sent, Errors: res.Errors})
}

type triggerWebhookRequest struct {
	Event  string          `json:"event" validate:"required"`
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// HandleTriggerWebhook fans an event out to the target tenant's webhooks.
// user_id defaults to the caller; naming another tenant needs the service role.
//
//	POST /trigger-webhook {"event": "...", "user_id": "...", "data": {...}}
func (h *Handlers) HandleTriggerWebhook(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req triggerWebhookRequest
	if !httputil.DecodeValid(w, r, &req) {
		return
	}

	target := caller.UserID
	if req.UserID != "" && req.UserID != caller.UserID {
		if !caller.IsService() {
			httputil.WriteError(w, apperr.Authentication("not allowed to trigger webhooks for another user"))
			return
		}
		target = req.UserID
	}

	var data any = map[string]any{}
	if len(req.Data) > 0 && string(req.Data) != "null" {
		data = req.Data
	}

	delivered, err := h.webhooks.Fanout(r.Context(), strings.TrimSpace(req.Event), target, data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"delivered": delivered})
}

type verifyDomainRequest struct {
	Action string `json:"action" validate:"required,oneof=add check remove"`
	Domain string `json:"domain"`
}

// HandleVerifyDomain runs add, check or remove against the caller's domain.
//
//	POST /verify-domain {"action": "add"|"check"|"remove", "domain": "..."}
func (h *Handlers) HandleVerifyDomain(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req verifyDomainRequest
	if !httputil.DecodeValid(w, r, &req) {
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "add":
		res, err := h.domains.Add(ctx, caller.UserID, req.Domain)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httputil.OK(w, res)
	case "check":
		res, err := h.domains.Check(ctx, caller.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httputil.OK(w, res)
	case "remove":
		if err := h.domains.Remove(ctx, caller.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
		httputil.OK(w, map[string]bool{"success": true})
	default:
		httputil.WriteError(w, apperr.Validation("unknown action: "+req.Action))
	}
}

// writeDomainError answers provider rejections with 400 and the provider's
// reply; everything else goes through the shared mapping.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *apperr.DeliveryError
	if errors.As(err, &de) {
		httputil.BadRequest(w, de.Error())
		return
	}
	httputil.WriteError(w, err)
}

func callerOrFail(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, ok := auth.FromContext(r.Context())
	if !ok || caller.UserID == "" {
		httputil.WriteError(w, apperr.Authentication("missing caller"))
		return auth.Caller{}, false
	}
	return caller, true
}
