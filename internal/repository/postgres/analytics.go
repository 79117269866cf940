package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/outbound/internal/domain"
)

// AnalyticsRepo appends delivery analytics events. Rows are never updated.
type AnalyticsRepo struct{ db *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// Record inserts evt. A recipient id that is not a UUID is stored as NULL.
func (r *AnalyticsRepo) Record(ctx context.Context, evt domain.AnalyticsEvent) error {
	if !validUUID(evt.CampaignID) {
		return fmt.Errorf("record analytics: invalid campaign id %q", evt.CampaignID)
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	var recipient sql.NullString
	if validUUID(evt.RecipientID) {
		recipient = sql.NullString{String: evt.RecipientID, Valid: true}
	}
	var meta []byte
	if len(evt.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(evt.Metadata); err != nil {
			return fmt.Errorf("encode analytics metadata: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_analytics (id, campaign_id, contact_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`, evt.ID, evt.CampaignID, recipient, string(evt.EventType), nullJSON(meta), nullTime(evt.CreatedAt))
	if err != nil {
		return fmt.Errorf("record analytics: %w", err)
	}
	return nil
}
