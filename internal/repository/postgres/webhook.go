package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/outbound/internal/domain"
)

// WebhookRepo reads webhook subscriptions.
type WebhookRepo struct{ db *sql.DB }

func NewWebhookRepo(db *sql.DB) *WebhookRepo { return &WebhookRepo{db: db} }

// ListActive returns the active subscriptions of userID that include event.
func (r *WebhookRepo) ListActive(ctx context.Context, userID, event string) ([]domain.WebhookSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(url,''), COALESCE(secret,''), events, active
		FROM webhooks
		WHERE user_id = $1 AND active = true AND $2 = ANY(events)
		ORDER BY created_at, id
	`, userID, event)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookSubscription
	for rows.Next() {
		var s domain.WebhookSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.URL, &s.Secret, pq.Array(&s.Events), &s.Active); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// WebhookLogRepo appends delivery attempt rows. Rows are never updated.
type WebhookLogRepo struct{ db *sql.DB }

func NewWebhookLogRepo(db *sql.DB) *WebhookLogRepo { return &WebhookLogRepo{db: db} }

func (r *WebhookLogRepo) Append(ctx context.Context, e domain.WebhookDeliveryLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_logs (id, webhook_id, event, payload, attempt, response_status, response_body, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
	`, e.ID, e.WebhookID, e.Event, nullJSON(e.Payload), e.Attempt, e.ResponseStatus, e.ResponseBody, e.Success, nullTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append webhook log: %w", err)
	}
	return nil
}
