// Package auth resolves the calling tenant from a bearer JWT.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignite/outbound/internal/apperr"
	"github.com/ignite/outbound/internal/pkg/httputil"
)

// RoleService marks trusted backend callers that may act for any tenant.
const RoleService = "service_role"

// Caller is the authenticated identity of a request.
type Caller struct {
	UserID string
	Role   string
}

// IsService reports whether the caller holds the service role.
func (c Caller) IsService() bool { return c.Role == RoleService }

type ctxKey struct{}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the caller stored by RequireAuth.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}

// Authenticator validates HS256 access tokens.
type Authenticator struct {
	secret []byte
	leeway time.Duration
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), leeway: 30 * time.Second}
}

// Authenticate parses the Authorization header value. The sub claim must be
// a UUID and becomes the tenant id.
func (a *Authenticator) Authenticate(header string) (Caller, error) {
	if len(a.secret) == 0 {
		return Caller{}, apperr.Configuration("auth secret is not configured", nil)
	}
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Caller{}, apperr.Authentication("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithLeeway(a.leeway), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Caller{}, apperr.Authentication("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, apperr.Authentication("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if _, err := uuid.Parse(sub); err != nil {
		return Caller{}, apperr.Authentication("invalid subject")
	}
	role, _ := claims["role"].(string)
	return Caller{UserID: sub, Role: role}, nil
}

// RequireAuth is middleware that rejects requests without a valid token and
// stores the Caller in the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}
