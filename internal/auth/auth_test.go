package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outbound/internal/apperr"
)

const (
	testSecret = "test-secret"
	tenantID   = "0f1e2d3c-4b5a-6978-8695-a4b3c2d1e0f9"
)

func token(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(testSecret)
	exp := time.Now().Add(time.Hour).Unix()

	good := token(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": tenantID, "exp": exp})
	c, err := a.Authenticate("Bearer " + good)
	require.NoError(t, err)
	assert.Equal(t, tenantID, c.UserID)
	assert.False(t, c.IsService())

	svc := token(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": tenantID, "role": "service_role", "exp": exp})
	c, err = a.Authenticate("Bearer " + svc)
	require.NoError(t, err)
	assert.True(t, c.IsService())

	tests := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not.a.jwt",
		"wrong secret": "Bearer " + token(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": tenantID, "exp": exp}),
		"expired":      "Bearer " + token(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": tenantID, "exp": time.Now().Add(-time.Hour).Unix()}),
		"bad subject":  "Bearer " + token(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "alice", "exp": exp}),
		"wrong alg":    "Bearer " + token(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": tenantID, "exp": exp}),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(header)
			assert.ErrorIs(t, err, apperr.ErrAuthentication)
		})
	}
}

func TestAuthenticateWithoutSecret(t *testing.T) {
	_, err := NewAuthenticator("").Authenticate("Bearer x")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestRequireAuth(t *testing.T) {
	a := NewAuthenticator(testSecret)
	var got Caller
	h := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send-campaign", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/send-campaign", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": tenantID}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenantID, got.UserID)
}
