package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"spotifiuby/internal/store"
)

// Principal is the caller as presented by request headers.
type Principal struct {
	UserID string
	// Authorization is the raw Authorization header, scheme included.
	Authorization string
}

// Caller is a resolved Principal.
type Caller struct {
	UserID  string
	IsAdmin bool
	Tier    int
}

// SubscriptionLookup reads the subscription tier recorded for a user.
type SubscriptionLookup interface {
	SubscriptionLevel(ctx context.Context, userID string) (int, error)
}

// Gate combines the API key allow-list with identity and subscription lookups.
//
// Admin privilege fails closed and subscription tier fails open to 0: a
// caller that cannot be resolved is a non-admin on the free tier.
type Gate struct {
	keys          *APIKeys
	identity      IdentityResolver
	subscriptions SubscriptionLookup
}

// NewGate wires the gate. subscriptions may be nil.
func NewGate(keys *APIKeys, identity IdentityResolver, subscriptions SubscriptionLookup) *Gate {
	if identity == nil {
		identity = PermissiveResolver{}
	}
	return &Gate{keys: keys, identity: identity, subscriptions: subscriptions}
}

// VerifyServiceAPIKey checks the service-to-service key.
func (g *Gate) VerifyServiceAPIKey(key string) error {
	return g.keys.Verify(key)
}

// ResolveCaller reports admin status and subscription tier for p.
func (g *Gate) ResolveCaller(ctx context.Context, p Principal) Caller {
	caller := Caller{UserID: p.UserID}
	identity, ok := g.resolve(ctx, p)
	if ok {
		caller.IsAdmin = identity.IsAdmin()
	}
	caller.Tier = g.tier(ctx, p, identity, ok)
	return caller
}

func (g *Gate) resolve(ctx context.Context, p Principal) (Identity, bool) {
	identity, err := g.identity.Resolve(ctx, p.UserID, p.Authorization)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("user_id", p.UserID).Msg("caller not resolved, treating as non-admin")
		return Identity{}, false
	}
	return identity, true
}

func (g *Gate) tier(ctx context.Context, p Principal, identity Identity, resolved bool) int {
	if p.UserID == "" {
		return 0
	}
	if resolved && identity.SubscriptionLevel != nil {
		return max(*identity.SubscriptionLevel, 0)
	}
	if g.subscriptions == nil {
		return 0
	}
	level, err := g.subscriptions.SubscriptionLevel(ctx, p.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", p.UserID).Msg("subscription lookup failed")
		}
		return 0
	}
	return max(level, 0)
}
