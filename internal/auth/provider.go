// Package auth resolves inbound credentials to stable user identifiers.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
)

// Provider resolves a credential to a user id. Callers treat the credential
// as opaque.
type Provider interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, credential string) (string, error)

// Resolve calls f.
func (f ProviderFunc) Resolve(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// JWTConfig configures JWTProvider.
type JWTConfig struct {
	Secret   []byte
	Audience string // optional
	Issuer   string // optional
	Now      func() time.Time
}

// JWTProvider verifies HS256 bearer tokens and returns their subject.
type JWTProvider struct {
	cfg JWTConfig
}

// NewJWTProvider returns a provider for cfg. The secret must not be empty.
func NewJWTProvider(cfg JWTConfig) (*JWTProvider, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTProvider{cfg: cfg}, nil
}

// Resolve verifies token and returns its "sub" claim.
func (p *JWTProvider) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.New(apperr.Unauthorized, "bearer token is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.cfg.Now),
	}
	if p.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.cfg.Audience))
	}
	if p.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.cfg.Issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return "", mapJWTError(err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", apperr.New(apperr.Unauthorized, "token subject is required")
	}
	return subject, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.Unauthorized, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Wrap(apperr.Unauthorized, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperr.Wrap(apperr.Unauthorized, "token was not issued for this service", err)
	default:
		return apperr.Wrap(apperr.Unauthorized, "token is invalid", err)
	}
}
