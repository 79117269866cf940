// Package mailapi talks to the SES v2 REST surface with hand-signed requests.
// It covers outbound message submission and the email identity endpoints.
package mailapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/config"
	"github.com/ignite/outbound/internal/signer"
)

const (
	service     = "ses"
	contentType = "application/json"

	defaultTimeout = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	Region      string
	Endpoint    string // empty = https://email.<region>.amazonaws.com
	Credentials aws.CredentialsProvider
	Timeout     time.Duration
	HTTPClient  *http.Client
	Signer      signer.Signer
	Now         func() time.Time
}

// Client is a signed HTTP client for the mail API.
type Client struct {
	region   string
	endpoint *url.URL
	creds    aws.CredentialsProvider
	http     *http.Client
	signer   signer.Signer
	now      func() time.Time
}

// New creates a Client. An unparsable endpoint is a configuration error.
func New(opts Options) (*Client, error) {
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.Endpoint == "" {
		opts.Endpoint = fmt.Sprintf("https://email.%s.amazonaws.com", opts.Region)
	}
	u, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil || u.Host == "" {
		return nil, apperr.Configuration("invalid provider endpoint "+opts.Endpoint, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Signer == nil {
		opts.Signer = signer.V4{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		region:   opts.Region,
		endpoint: u,
		creds:    opts.Credentials,
		http:     opts.HTTPClient,
		signer:   opts.Signer,
		now:      opts.Now,
	}, nil
}

// NewFromConfig creates a Client with static credentials from cfg.
// Missing keys are not an error here; each call fails with a
// configuration error instead.
func NewFromConfig(cfg config.ProviderConfig) (*Client, error) {
	return New(Options{
		Region:      cfg.Region,
		Endpoint:    cfg.Endpoint,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		Timeout:     cfg.Timeout(),
	})
}

// Do sends one signed request. body is JSON-encoded when non-nil. A non-2xx
// answer is returned as *apperr.DeliveryError together with the raw body.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	ak, sk, err := c.retrieve(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	auth, err := c.signer.Sign(signer.Request{
		Method:      method,
		Path:        path,
		Body:        payload,
		Host:        c.endpoint.Host,
		ContentType: contentType,
		AccessKey:   ak,
		SecretKey:   sk,
		Region:      c.region,
		Service:     service,
		Time:        now,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.String()+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Date", signer.AmzDate(now))
	req.Header.Set("Authorization", auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.DeliveryError{Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, apperr.NewDeliveryError(resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (c *Client) retrieve(ctx context.Context) (string, string, error) {
	if c.creds == nil {
		return "", "", apperr.Configuration("provider credentials are not configured", nil)
	}
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return "", "", apperr.Configuration("provider credentials are not configured", err)
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return "", "", apperr.Configuration("provider credentials are not configured", nil)
	}
	return creds.AccessKeyID, creds.SecretAccessKey, nil
}

// Ready reports a configuration error when no usable credentials are
// available, without making a network call.
func (c *Client) Ready(ctx context.Context) error {
	_, _, err := c.retrieve(ctx)
	return err
}
