package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/domain"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, userID, id string) (*domain.Campaign, error) {
	if !validUUID(id) {
		return nil, apperr.NotFound("campaign not found")
	}
	c := &domain.Campaign{}
	var listID sql.NullString
	var sentAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, list_id, subject, COALESCE(body,''), status,
		       recipients_count, sent_at, created_at, updated_at
		FROM campaigns
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&c.ID, &c.UserID, &listID, &c.Subject, &c.Body, &c.Status,
		&c.RecipientsCount, &sentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("campaign not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	c.ListID = listID.String
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	return c, nil
}

func (r *CampaignRepo) MarkSent(ctx context.Context, userID, id string, sentAt time.Time, recipients int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $3, sent_at = $4, recipients_count = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, domain.CampaignSent, sentAt, recipients)
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("campaign not found")
	}
	return nil
}
