// Package auth guards the HTTP surface: service API keys, caller identity
// resolution and subscription tiers.
package auth

import (
	"context"
	"errors"
)

// UserTypeAdmin marks an administrator in identity responses.
const UserTypeAdmin = "admin"

// ErrUnknownUser is returned by resolvers that could not identify the caller.
var ErrUnknownUser = errors.New("unknown user")

// Identity is what the identity service knows about a user.
type Identity struct {
	UserType string `json:"user_type"`
	// SubscriptionLevel is nil when the identity service does not report a tier.
	SubscriptionLevel *int `json:"subscription_level,omitempty"`
}

// IsAdmin reports whether the identity carries admin privileges.
func (i Identity) IsAdmin() bool {
	return i.UserType == UserTypeAdmin
}

// IdentityResolver looks up a user given the caller's id and raw Authorization header.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID, authorization string) (Identity, error)
}

// PermissiveResolver treats every caller as an administrator.
type PermissiveResolver struct{}

// Resolve always reports an admin identity.
func (PermissiveResolver) Resolve(context.Context, string, string) (Identity, error) {
	return Identity{UserType: UserTypeAdmin}, nil
}
