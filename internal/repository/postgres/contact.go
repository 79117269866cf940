package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outbound/internal/domain"
)

// ContactRepo resolves recipients from the contacts table.
type ContactRepo struct{ db *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Subscribed returns the subscribed contacts of listID in a stable order.
func (r *ContactRepo) Subscribed(ctx context.Context, userID, listID string) ([]domain.Recipient, error) {
	if listID == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(name,'')
		FROM contacts
		WHERE user_id = $1 AND list_id = $2 AND status = $3
		ORDER BY created_at, id
	`, userID, listID, domain.ContactSubscribed)
	if err != nil {
		return nil, fmt.Errorf("list subscribed contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Name); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
