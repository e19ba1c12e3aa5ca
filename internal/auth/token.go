package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"spotifiuby/internal/apperr"
)

// IdentityClaims are the claims carried by identity tokens.
type IdentityClaims struct {
	UserType          string `json:"user_type"`
	SubscriptionLevel *int   `json:"subscription_level,omitempty"`
	jwt.RegisteredClaims
}

// TokenResolver resolves callers from HS256 tokens signed by the identity service.
type TokenResolver struct {
	secret []byte
}

// NewTokenResolver verifies tokens with secret.
func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{secret: []byte(secret)}
}

// Resolve validates the bearer token in authorization and checks that its subject is userID.
func (r *TokenResolver) Resolve(_ context.Context, userID, authorization string) (Identity, error) {
	raw := strings.TrimSpace(authorization)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return Identity{}, apperr.ErrInvalidToken
	}

	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if userID != "" && claims.Subject != userID {
		return Identity{}, fmt.Errorf("%w: subject mismatch", apperr.ErrInvalidToken)
	}
	if claims.UserType == "" {
		return Identity{}, fmt.Errorf("%w: missing user_type", ErrUnknownUser)
	}

	return Identity{UserType: claims.UserType, SubscriptionLevel: claims.SubscriptionLevel}, nil
}

// SignIdentityToken issues a token for userID. Used by tooling and tests.
func SignIdentityToken(secret, userID string, identity Identity) (string, error) {
	claims := IdentityClaims{
		UserType:          identity.UserType,
		SubscriptionLevel: identity.SubscriptionLevel,
		RegisteredClaims:  jwt.RegisteredClaims{Subject: userID},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
