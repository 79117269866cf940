package mailapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// DkimAttributes is the DKIM part of an identity response.
type DkimAttributes struct {
	Tokens  []string `json:"Tokens"`
	Status  string   `json:"Status"`
	Enabled bool     `json:"SigningEnabled"`
}

// IdentityResponse is the subset of the create/get identity answers we use.
type IdentityResponse struct {
	IdentityType             string         `json:"IdentityType"`
	VerifiedForSendingStatus bool           `json:"VerifiedForSendingStatus"`
	DkimAttributes           DkimAttributes `json:"DkimAttributes"`
}

// CreateEmailIdentity registers domain as a sending identity.
func (c *Client) CreateEmailIdentity(ctx context.Context, domain string) (*IdentityResponse, error) {
	body, err := c.Do(ctx, http.MethodPost, "/v2/email/identities", map[string]string{"EmailIdentity": domain})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(body)
}

// GetEmailIdentity fetches the verification state of domain.
func (c *Client) GetEmailIdentity(ctx context.Context, domain string) (*IdentityResponse, error) {
	body, err := c.Do(ctx, http.MethodGet, identityPath(domain), nil)
	if err != nil {
		return nil, err
	}
	return decodeIdentity(body)
}

// DeleteEmailIdentity removes domain from the provider.
func (c *Client) DeleteEmailIdentity(ctx context.Context, domain string) error {
	_, err := c.Do(ctx, http.MethodDelete, identityPath(domain), nil)
	return err
}

func identityPath(domain string) string {
	return "/v2/email/identities/" + url.PathEscape(domain)
}

func decodeIdentity(body []byte) (*IdentityResponse, error) {
	var out IdentityResponse
	if len(body) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding identity response: %w", err)
	}
	return &out, nil
}
