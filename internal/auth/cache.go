package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedResolver memoizes identity lookups in Redis.
// Cache failures are logged and fall through to the wrapped resolver.
type CachedResolver struct {
	next   IdentityResolver
	client *redis.Client
	ttl    time.Duration
}

// NewCachedResolver wraps next. A nil client disables caching.
func NewCachedResolver(next IdentityResolver, client *redis.Client, ttl time.Duration) IdentityResolver {
	if client == nil || ttl <= 0 {
		return next
	}
	return &CachedResolver{next: next, client: client, ttl: ttl}
}

func identityCacheKey(userID, authorization string) string {
	sum := sha256.Sum256([]byte(authorization))
	return "identity:" + userID + ":" + hex.EncodeToString(sum[:8])
}

// Resolve returns the cached identity or resolves and stores it.
func (c *CachedResolver) Resolve(ctx context.Context, userID, authorization string) (Identity, error) {
	logger := zerolog.Ctx(ctx)
	key := identityCacheKey(userID, authorization)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var identity Identity
		if jsonErr := json.Unmarshal(raw, &identity); jsonErr == nil {
			return identity, nil
		}
		logger.Warn().Str("key", key).Msg("discarding malformed cached identity")
	case !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Msg("identity cache read failed")
	}

	identity, err := c.next.Resolve(ctx, userID, authorization)
	if err != nil {
		return Identity{}, err
	}

	if payload, err := json.Marshal(identity); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn().Err(err).Msg("identity cache write failed")
		}
	}
	return identity, nil
}
