package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/auth"
	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/identity"
	"github.com/ignite/outbound/internal/service/campaign"
	"github.com/ignite/outbound/internal/tracking"
)

const (
	jwtSecret = "api-test-secret"
	tenantA   = "11111111-1111-4111-8111-111111111111"
	tenantB   = "22222222-2222-4222-8222-222222222222"
)

type fakeCampaigns struct {
	gotID, gotUser string
	res            *campaign.Result
	err            error
}

func (f *fakeCampaigns) Dispatch(_ context.Context, campaignID, userID string) (*campaign.Result, error) {
	f.gotID, f.gotUser = campaignID, userID
	return f.res, f.err
}

type fakeFanout struct {
	event, user string
	data        any
	delivered   int
	err         error
	calls       int
}

func (f *fakeFanout) Fanout(_ context.Context, event, userID string, data any) (int, error) {
	f.calls++
	f.event, f.user, f.data = event, userID, data
	return f.delivered, f.err
}

type fakeDomains struct {
	added, removed string
	err            error
}

func (f *fakeDomains) Add(_ context.Context, userID, d string) (*identity.AddResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.added = userID + ":" + d
	return &identity.AddResult{
		Domain:     d,
		DkimTokens: []string{"tok1"},
		DNSRecords: identity.DKIMRecords(d, []string{"tok1"}),
	}, nil
}

func (f *fakeDomains) Check(_ context.Context, userID string) (*identity.CheckResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identity.CheckResult{Domain: "acme.io", Verified: true, DkimStatus: "SUCCESS"}, nil
}

func (f *fakeDomains) Remove(_ context.Context, userID string) error {
	f.removed = userID
	return f.err
}

type memRecorder struct{ events []domain.AnalyticsEvent }

func (m *memRecorder) Record(_ context.Context, evt domain.AnalyticsEvent) error {
	m.events = append(m.events, evt)
	return nil
}

type testServer struct {
	router    http.Handler
	campaigns *fakeCampaigns
	fanout    *fakeFanout
	domains   *fakeDomains
	recorder  *memRecorder
}

func newTestServer() *testServer {
	ts := &testServer{
		campaigns: &fakeCampaigns{res: &campaign.Result{Errors: []string{}}},
		fanout:    &fakeFanout{},
		domains:   &fakeDomains{},
		recorder:  &memRecorder{},
	}
	ts.router = NewRouter(RouterDeps{
		Handlers:       NewHandlers(ts.campaigns, ts.fanout, ts.domains),
		Health:         NewHealthChecker(nil, nil, nil),
		Auth:           auth.NewAuthenticator(jwtSecret),
		Tracking:       tracking.NewHandler(ts.recorder),
		AllowedOrigins: []string{"*"},
	})
	return ts
}

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (ts *testServer) post(t *testing.T, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer()
	for _, path := range []string{"/send-campaign", "/trigger-webhook", "/verify-domain"} {
		t.Run(path, func(t *testing.T) {
			w := ts.post(t, path, "", map[string]string{})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
	assert.Empty(t, ts.campaigns.gotID)
	assert.Zero(t, ts.fanout.calls)
}

func TestSendCampaign(t *testing.T) {
	ts := newTestServer()
	ts.campaigns.res = &campaign.Result{Sent: 2, Errors: []string{"b@example.com: rejected"}}

	w := ts.post(t, "/send-campaign", bearer(t, tenantA, ""), map[string]string{"campaignId": "c-1"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["sent"])
	assert.Equal(t, []any{"b@example.com: rejected"}, body["errors"])
	assert.Equal(t, "c-1", ts.campaigns.gotID)
	assert.Equal(t, tenantA, ts.campaigns.gotUser)
}

func TestSendCampaignErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", campaign.ErrNoRecipients, http.StatusBadRequest, "no recipients"},
		{"not found", apperr.NotFound("campaign not found"), http.StatusBadRequest, "campaign not found"},
		{"configuration", apperr.Configuration("provider credentials are not configured", nil), http.StatusInternalServerError, "internal server error"},
		{"unclassified", errors.New("db exploded at 10.0.0.3"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.campaigns.err = tt.err
			w := ts.post(t, "/send-campaign", bearer(t, tenantA, ""), map[string]string{"campaignId": "c-1"})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decodeBody(t, w)["error"])
		})
	}
}

func TestSendCampaignInvalidJSON(t *testing.T) {
	ts := newTestServer()
	w := ts.post(t, "/send-campaign", bearer(t, tenantA, ""), "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.campaigns.gotID)
}

func TestTriggerWebhook(t *testing.T) {
	ts := newTestServer()
	ts.fanout.delivered = 2

	w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, ""), map[string]any{
		"event": "campaign.sent",
		"data":  map[string]any{"campaign_id": "c-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["delivered"])
	assert.Equal(t, "campaign.sent", ts.fanout.event)
	assert.Equal(t, tenantA, ts.fanout.user)

	raw, ok := ts.fanout.data.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"campaign_id":"c-1"}`, string(raw))
}

func TestTriggerWebhookTargetTenant(t *testing.T) {
	t.Run("same tenant", func(t *testing.T) {
		ts := newTestServer()
		w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, ""), map[string]any{"event": "e", "user_id": tenantA})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantA, ts.fanout.user)
	})

	t.Run("other tenant rejected", func(t *testing.T) {
		ts := newTestServer()
		w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, ""), map[string]any{"event": "e", "user_id": tenantB})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, ts.fanout.calls)
	})

	t.Run("service role may target any tenant", func(t *testing.T) {
		ts := newTestServer()
		w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, auth.RoleService), map[string]any{"event": "e", "user_id": tenantB})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantB, ts.fanout.user)
	})
}

func TestTriggerWebhookDefaultsData(t *testing.T) {
	ts := newTestServer()
	w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, ""), map[string]any{"event": "e"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{}, ts.fanout.data)
}

func TestTriggerWebhookValidationError(t *testing.T) {
	ts := newTestServer()
	w := ts.post(t, "/trigger-webhook", bearer(t, tenantA, ""), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "event is required", decodeBody(t, w)["error"])
	assert.Zero(t, ts.fanout.calls)
}

func TestVerifyDomainActions(t *testing.T) {
	ts := newTestServer()
	tok := bearer(t, tenantA, "")

	w := ts.post(t, "/verify-domain", tok, map[string]string{"action": "add", "domain": "acme.io"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "acme.io", body["domain"])
	assert.Equal(t, []any{"tok1"}, body["dkimTokens"])
	records := body["dnsRecords"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "tok1._domainkey.acme.io", records[0].(map[string]any)["name"])
	assert.Equal(t, tenantA+":acme.io", ts.domains.added)

	w = ts.post(t, "/verify-domain", tok, map[string]string{"action": "check"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "SUCCESS", body["dkimStatus"])

	w = ts.post(t, "/verify-domain", tok, map[string]string{"action": "remove"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
	assert.Equal(t, tenantA, ts.domains.removed)
}

func TestVerifyDomainErrors(t *testing.T) {
	ts := newTestServer()
	tok := bearer(t, tenantA, "")

	w := ts.post(t, "/verify-domain", tok, map[string]string{"action": "rename"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "action must be one of: add check remove", decodeBody(t, w)["error"])

	ts.domains.err = apperr.Validation("no domain configured")
	w = ts.post(t, "/verify-domain", tok, map[string]string{"action": "check"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no domain configured", decodeBody(t, w)["error"])

	ts.domains.err = fmt.Errorf("create email identity: %w",
		apperr.NewDeliveryError(http.StatusConflict, `{"message":"Email identity acme.io already exists"}`))
	w = ts.post(t, "/verify-domain", tok, map[string]string{"action": "add", "domain": "acme.io"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `provider returned status 409: {"message":"Email identity acme.io already exists"}`, decodeBody(t, w)["error"])

	ts.domains.err = errors.New("connection pool exhausted")
	w = ts.post(t, "/verify-domain", tok, map[string]string{"action": "check"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody(t, w)["error"])
}

func TestTrackingIsPublic(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/track-email?type=open&cid=c-1&rid=r-1", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, tracking.PixelGIF, w.Body.Bytes())
	require.Len(t, ts.recorder.events, 1)
	assert.Equal(t, domain.EventOpen, ts.recorder.events[0].EventType)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/send-campaign", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, w.Code, 300)
}
