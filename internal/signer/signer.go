// Package signer computes AWS Signature Version 4 authorization headers for
// the mail API. Only content-type, host and x-amz-date are signed.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/outbound/internal/apperr"
)

const (
	// Algorithm is the SigV4 algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"
	// SignedHeaders lists the canonical headers, lower-cased and sorted.
	SignedHeaders = "content-type;host;x-amz-date"

	amzDateLayout   = "20060102T150405Z"
	shortDateLayout = "20060102"
	terminator      = "aws4_request"
)

// Request carries everything needed to sign one HTTP call.
type Request struct {
	Method      string
	Path        string
	Body        []byte
	Host        string
	ContentType string
	AccessKey   string
	SecretKey   string
	Region      string
	Service     string
	Time        time.Time
}

// Signer produces an Authorization header value for a request.
type Signer interface {
	Sign(req Request) (string, error)
}

// V4 is the SigV4 Signer. It is stateless.
type V4 struct{}

// Sign returns the Authorization header value for req. It is deterministic
// for identical inputs.
func (V4) Sign(req Request) (string, error) {
	return Sign(req)
}

// Sign is the function form of V4.Sign.
func Sign(req Request) (string, error) {
	if req.AccessKey == "" || req.SecretKey == "" {
		return "", apperr.Configuration("provider credentials are not configured", nil)
	}

	amzDate := AmzDate(req.Time)
	date := req.Time.UTC().Format(shortDateLayout)
	scope := Scope(req.Time, req.Region, req.Service)

	canonical := CanonicalRequest(req)
	stringToSign := strings.Join([]string{
		Algorithm,
		amzDate,
		scope,
		HashHex([]byte(canonical)),
	}, "\n")

	key := SigningKey(req.SecretKey, date, req.Region, req.Service)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, req.AccessKey, scope, SignedHeaders, signature), nil
}

// CanonicalRequest builds the canonical request string. The query string is
// always empty for the mail API paths.
func CanonicalRequest(req Request) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte('\n')
	b.WriteString(req.Path)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "content-type:%s\n", strings.TrimSpace(req.ContentType))
	fmt.Fprintf(&b, "host:%s\n", strings.TrimSpace(req.Host))
	fmt.Fprintf(&b, "x-amz-date:%s\n", AmzDate(req.Time))
	b.WriteByte('\n')
	b.WriteString(SignedHeaders)
	b.WriteByte('\n')
	b.WriteString(HashHex(req.Body))
	return b.String()
}

// Scope returns the credential scope date/region/service/aws4_request.
func Scope(t time.Time, region, service string) string {
	return strings.Join([]string{t.UTC().Format(shortDateLayout), region, service, terminator}, "/")
}

// SigningKey derives the per-day signing key.
func SigningKey(secret, date, region, service string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(service))
	return hmacSHA256(k, []byte(terminator))
}

// AmzDate formats t as the x-amz-date header value (UTC, basic ISO 8601).
func AmzDate(t time.Time) string {
	return t.UTC().Format(amzDateLayout)
}

// HashHex returns the lowercase hex SHA-256 of body. A nil body hashes as empty.
func HashHex(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
