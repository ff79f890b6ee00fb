package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
)

var (
	testSecret = []byte("unit-test-secret")
	testNow    = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "user-123",
		Audience:  jwt.ClaimStrings{"authenticated"},
		Issuer:    "https://auth.example.test",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}
}

func newProvider(t *testing.T) *JWTProvider {
	t.Helper()
	p, err := NewJWTProvider(JWTConfig{
		Secret:   testSecret,
		Audience: "authenticated",
		Issuer:   "https://auth.example.test",
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return p
}

func TestResolveReturnsSubject(t *testing.T) {
	userID, err := newProvider(t).Resolve(context.Background(), sign(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.test"

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", sign(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"missing exp", sign(t, jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"wrong audience", sign(t, jwt.SigningMethodHS256, testSecret, wrongAudience)},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, testSecret, wrongIssuer)},
		{"missing subject", sign(t, jwt.SigningMethodHS256, testSecret, noSubject)},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims())},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, testSecret, validClaims())},
	}

	p := newProvider(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Resolve(context.Background(), tt.token)
			assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
		})
	}
}

func TestNewJWTProviderRequiresSecret(t *testing.T) {
	_, err := NewJWTProvider(JWTConfig{})
	assert.Error(t, err)
}

func TestUserIDContextRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-9")
	assert.Equal(t, "user-9", UserIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(context.Background()))
}
