// Package identity manages a tenant's sending-domain identity at the mail
// provider: registration, DKIM verification status and removal.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/mailapi"
	"github.com/ignite/outbound/internal/pkg/logger"
)

// hostnamePattern accepts lower-case dotted hostnames: 1-63 char labels of
// letters, digits and inner hyphens, with an alphabetic TLD.
var hostnamePattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

const dkimTarget = "dkim.amazonses.com"

// Store persists the identity on the tenant profile.
type Store interface {
	// Get returns the tenant's identity, or nil when no domain is configured.
	Get(ctx context.Context, userID string) (*domain.DomainIdentity, error)
	Save(ctx context.Context, id domain.DomainIdentity) error
	Clear(ctx context.Context, userID string) error
}

// ProviderAPI is the identity surface of the mail API. *mailapi.Client
// satisfies it.
type ProviderAPI interface {
	CreateEmailIdentity(ctx context.Context, domain string) (*mailapi.IdentityResponse, error)
	GetEmailIdentity(ctx context.Context, domain string) (*mailapi.IdentityResponse, error)
	DeleteEmailIdentity(ctx context.Context, domain string) error
}

// DNSPublisher writes verification records into a DNS zone.
type DNSPublisher interface {
	Publish(ctx context.Context, records []domain.DNSRecord) error
}

// AddResult is returned by Add.
type AddResult struct {
	Domain     string             `json:"domain"`
	DkimTokens []string           `json:"dkimTokens"`
	DNSRecords []domain.DNSRecord `json:"dnsRecords"`
}

// CheckResult is returned by Check.
type CheckResult struct {
	Domain     string `json:"domain"`
	Verified   bool   `json:"verified"`
	DkimStatus string `json:"dkimStatus"`
}

type Manager struct {
	store Store
	api   ProviderAPI
	dns   DNSPublisher
	log   *logger.Logger
}

// NewManager builds a Manager. dns may be nil to skip DNS publication.
func NewManager(store Store, api ProviderAPI, dns DNSPublisher) *Manager {
	return &Manager{store: store, api: api, dns: dns, log: logger.New("identity")}
}

// NormalizeDomain lower-cases and trims domain and checks it is a hostname.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if len(d) > 253 || !hostnamePattern.MatchString(d) {
		return "", apperr.Validation("invalid domain format")
	}
	return d, nil
}

// Add registers domain with the provider and stores it unverified.
func (m *Manager) Add(ctx context.Context, userID, rawDomain string) (*AddResult, error) {
	d, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.CreateEmailIdentity(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create email identity: %w", err)
	}

	tokens := resp.DkimAttributes.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	identity := domain.DomainIdentity{
		UserID:   userID,
		Domain:   d,
		Verified: false,
		Tokens:   &domain.IdentityTokens{Tokens: tokens, IdentityType: resp.IdentityType},
	}
	if err := m.store.Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}

	records := DKIMRecords(d, tokens)
	if m.dns != nil && len(records) > 0 {
		if err := m.dns.Publish(ctx, records); err != nil {
			m.log.Warn("DKIM record publication failed", "domain", d, "error", err)
		}
	}

	m.log.Info("domain identity added", "user_id", userID, "domain", d, "dkim_records", len(records))
	return &AddResult{Domain: d, DkimTokens: tokens, DNSRecords: records}, nil
}

// Check refreshes the verified flag from the provider.
func (m *Manager) Check(ctx context.Context, userID string) (*CheckResult, error) {
	identity, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if identity == nil || identity.Domain == "" {
		return nil, apperr.Validation("no domain configured")
	}

	resp, err := m.api.GetEmailIdentity(ctx, identity.Domain)
	if err != nil {
		return nil, fmt.Errorf("get email identity: %w", err)
	}

	identity.Verified = resp.VerifiedForSendingStatus
	if err := m.store.Save(ctx, *identity); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	return &CheckResult{
		Domain:     identity.Domain,
		Verified:   identity.Verified,
		DkimStatus: resp.DkimAttributes.Status,
	}, nil
}

// Remove deletes the identity at the provider when one is configured, then
// clears local state whatever the provider answered.
func (m *Manager) Remove(ctx context.Context, userID string) error {
	identity, err := m.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if identity != nil && identity.Domain != "" {
		if err := m.api.DeleteEmailIdentity(ctx, identity.Domain); err != nil {
			m.log.Warn("provider identity delete failed", "domain", identity.Domain, "error", err)
		}
	}
	if err := m.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

// DKIMRecords returns the CNAMEs the tenant must publish for tokens.
func DKIMRecords(d string, tokens []string) []domain.DNSRecord {
	records := make([]domain.DNSRecord, 0, len(tokens))
	for _, t := range tokens {
		records = append(records, domain.DNSRecord{
			Type:  "CNAME",
			Name:  fmt.Sprintf("%s._domainkey.%s", t, d),
			Value: fmt.Sprintf("%s.%s", t, dkimTarget),
		})
	}
	return records
}

var _ ProviderAPI = (*mailapi.Client)(nil)
