// Package webhook fans domain events out to tenant webhook endpoints with
// HMAC signing, bounded retry and one delivery log row per attempt.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/metrics"
	"github.com/ignite/outbound/internal/pkg/httpretry"
	"github.com/ignite/outbound/internal/pkg/logger"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	missingURLBody  = "missing webhook url"
	maxReadBytes    = 64 << 10
)

// SubscriptionStore looks up the active subscriptions of a tenant for an event.
type SubscriptionStore interface {
	ListActive(ctx context.Context, userID, event string) ([]domain.WebhookSubscription, error)
}

// LogStore appends delivery attempt rows.
type LogStore interface {
	Append(ctx context.Context, entry domain.WebhookDeliveryLog) error
}

// Envelope is the JSON body delivered to endpoints.
type Envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Options tunes a Dispatcher. Zero values take the defaults.
type Options struct {
	HTTPClient  httpretry.HTTPDoer
	Timeout     time.Duration
	MaxAttempts int
	Sleep       httpretry.SleepFunc
	Now         func() time.Time
}

// Dispatcher delivers events to every matching subscription in parallel.
type Dispatcher struct {
	subs   SubscriptionStore
	logs   LogStore
	client httpretry.HTTPDoer
	retry  httpretry.Policy
	now    func() time.Time
	log    *logger.Logger
}

func NewDispatcher(subs SubscriptionStore, logs LogStore, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	retry := httpretry.NewPolicy(opts.MaxAttempts)
	if opts.Sleep != nil {
		retry.Sleep = opts.Sleep
	}
	return &Dispatcher{
		subs:   subs,
		logs:   logs,
		client: opts.HTTPClient,
		retry:  retry,
		now:    opts.Now,
		log:    logger.New("webhook"),
	}
}

// Fanout delivers event to all of the tenant's active subscriptions and
// returns how many subscriptions matched. Endpoint failures are visible only
// in the delivery log; the error return covers setup problems. Delivery
// does not follow the caller's cancellation; each attempt has its own timeout.
func (d *Dispatcher) Fanout(ctx context.Context, event, userID string, data any) (int, error) {
	ctx = context.WithoutCancel(ctx)
	if event == "" {
		return 0, apperr.Validation("event is required")
	}
	if userID == "" {
		return 0, apperr.Validation("user_id is required")
	}

	subs, err := d.subs.ListActive(ctx, userID, event)
	if err != nil {
		return 0, fmt.Errorf("listing webhooks: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: d.now().UTC().Format(timestampLayout),
		Data:      data,
	})
	if err != nil {
		return 0, apperr.Validation("payload is not valid JSON")
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub domain.WebhookSubscription) {
			defer wg.Done()
			d.deliver(ctx, sub, event, body)
		}(sub)
	}
	wg.Wait()

	d.log.Info("webhook fanout complete", "event", event, "user_id", userID, "delivered", len(subs))
	return len(subs), nil
}

func (d *Dispatcher) deliver(ctx context.Context, sub domain.WebhookSubscription, event string, body []byte) {
	if sub.URL == "" {
		d.appendLog(ctx, sub, event, body, 1, 0, missingURLBody)
		metrics.IncWebhookAttempt("error")
		return
	}

	signature := Sign(sub.Secret, body)
	attempts := d.retry.Run(ctx, func(n int) bool {
		status, respBody := d.attempt(ctx, sub.URL, event, signature, body)
		ok := status >= 200 && status <= 299
		d.appendLog(ctx, sub, event, body, n, status, respBody)
		switch {
		case ok:
			metrics.IncWebhookAttempt("success")
		case status == 0:
			metrics.IncWebhookAttempt("error")
		default:
			metrics.IncWebhookAttempt("failure")
		}
		return ok
	})
	d.log.Debug("webhook delivered", "webhook_id", sub.ID, "event", event, "attempts", attempts)
}

// attempt performs one POST. Status 0 means no response was received and
// the returned text is the transport error.
func (d *Dispatcher) attempt(ctx context.Context, url, event, signature string, body []byte) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, event)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		return resp.StatusCode, err.Error()
	}
	return resp.StatusCode, string(raw)
}

// appendLog writes one attempt row. Its own failure is only logged.
func (d *Dispatcher) appendLog(ctx context.Context, sub domain.WebhookSubscription, event string, body []byte, attempt, status int, respBody string) {
	entry := domain.WebhookDeliveryLog{
		ID:             uuid.NewString(),
		WebhookID:      sub.ID,
		Event:          event,
		Payload:        json.RawMessage(body),
		Attempt:        attempt,
		ResponseStatus: status,
		ResponseBody:   apperr.Truncate(respBody, apperr.MaxBodyLen),
		Success:        status >= 200 && status <= 299,
		CreatedAt:      d.now().UTC(),
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		d.log.Error("webhook log append failed", "webhook_id", sub.ID, "attempt", attempt, "error", err)
	}
}
