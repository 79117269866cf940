package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/domain"
)

// ProfileRepo reads sender settings and stores the sending-domain identity,
// both kept on the profiles row of a tenant.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// SenderProfile returns nil when the tenant has no profile row.
func (r *ProfileRepo) SenderProfile(ctx context.Context, userID string) (*domain.SenderProfile, error) {
	p := &domain.SenderProfile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(sender_name,''), COALESCE(sender_email,''),
		       COALESCE(custom_domain,''), COALESCE(domain_verified,false)
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&p.UserID, &p.SenderName, &p.SenderEmail, &p.CustomDomain, &p.DomainVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sender profile: %w", err)
	}
	return p, nil
}

// IdentityRepo implements identity.Store on the profiles table.
type IdentityRepo struct{ db *sql.DB }

func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// Get returns nil when no custom domain is configured.
func (r *IdentityRepo) Get(ctx context.Context, userID string) (*domain.DomainIdentity, error) {
	var (
		d        sql.NullString
		verified sql.NullBool
		blob     []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT custom_domain, domain_verified, domain_verification_token
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&d, &verified, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get domain identity: %w", err)
	}
	if !d.Valid || d.String == "" {
		return nil, nil
	}

	id := &domain.DomainIdentity{UserID: userID, Domain: d.String, Verified: verified.Bool}
	if len(blob) > 0 {
		var tokens domain.IdentityTokens
		if err := json.Unmarshal(blob, &tokens); err != nil {
			return nil, fmt.Errorf("decode verification token: %w", err)
		}
		id.Tokens = &tokens
	}
	return id, nil
}

func (r *IdentityRepo) Save(ctx context.Context, id domain.DomainIdentity) error {
	var blob []byte
	if id.Tokens != nil {
		var err error
		if blob, err = json.Marshal(id.Tokens); err != nil {
			return fmt.Errorf("encode verification token: %w", err)
		}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET custom_domain = $2, domain_verified = $3, domain_verification_token = $4, updated_at = NOW()
		WHERE id = $1
	`, id.UserID, id.Domain, id.Verified, nullJSON(blob))
	if err != nil {
		return fmt.Errorf("save domain identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save domain identity: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("profile not found")
	}
	return nil
}

func (r *IdentityRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET custom_domain = NULL, domain_verified = false, domain_verification_token = NULL, updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("clear domain identity: %w", err)
	}
	return nil
}
