package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_RoundTrip(t *testing.T) {
	v, err := NewValidator("s3cret", "gridguardian")
	require.NoError(t, err)

	token, err := v.Issue("operator-1", time.Minute)
	require.NoError(t, err)

	claims, err := v.Validate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "operator-1", claims.Subject)
	assert.Equal(t, "gridguardian", claims.Issuer)
}

func TestValidator_Rejects(t *testing.T) {
	v, err := NewValidator("s3cret", "gridguardian")
	require.NoError(t, err)

	other, _ := NewValidator("different", "gridguardian")
	wrongKey, _ := other.Issue("x", time.Minute)

	wrongIssuer, _ := func() (string, error) {
		o, _ := NewValidator("s3cret", "someone-else")
		return o.Issue("x", time.Minute)
	}()

	expired, _ := v.Issue("x", -time.Minute)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "gridguardian"},
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not.a.token", want: ErrInvalidToken},
		{name: "wrong key", token: wrongKey, want: ErrInvalidSignature},
		{name: "wrong issuer", token: wrongIssuer, want: ErrInvalidClaims},
		{name: "expired", token: expired, want: ErrExpiredToken},
		{name: "no subject", token: noSubject, want: ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewValidator_RequiresSecret(t *testing.T) {
	_, err := NewValidator("", "")
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	assert.Empty(t, TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", claims.Subject)
}
