package domain

import "strings"

// SenderProfile is the tenant's configured sender and sending domain.
type SenderProfile struct {
	UserID         string `json:"user_id" db:"id"`
	SenderName     string `json:"sender_name" db:"sender_name"`
	SenderEmail    string `json:"sender_email" db:"sender_email"`
	CustomDomain   string `json:"custom_domain" db:"custom_domain"`
	DomainVerified bool   `json:"domain_verified" db:"domain_verified"`
}

// FromAddress returns the sender email, with the domain segment replaced by
// the custom domain when that domain is verified. The local part is kept.
func (p SenderProfile) FromAddress() string {
	email := p.SenderEmail
	if !p.DomainVerified || p.CustomDomain == "" {
		return email
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + p.CustomDomain
}

// IdentityTokens is the verification blob stored for a sending domain.
type IdentityTokens struct {
	Tokens       []string `json:"tokens"`
	IdentityType string   `json:"identityType"`
}

// DomainIdentity is the tenant's sending-domain identity.
type DomainIdentity struct {
	UserID   string          `json:"user_id"`
	Domain   string          `json:"domain"`
	Verified bool            `json:"verified"`
	Tokens   *IdentityTokens `json:"tokens,omitempty"`
}

// DNSRecord is a record the tenant must publish to verify a domain.
type DNSRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}
