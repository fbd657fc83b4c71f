package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LastCoderBoy/finice-auth/pkg/logger"
	"github.com/LastCoderBoy/finice-auth/pkg/redis"
)

const blacklistKeyPrefix = "blacklist:token:"

// RevocationCache records revoked access tokens for the remainder of
// their signed lifetime. Lookups are fail-open: if Redis is unreachable
// the token is treated as not blacklisted, since signature and expiry
// checks still apply. The degraded state is logged.
type RevocationCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRevocationCache creates a RevocationCache backed by Redis
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{
		client: client,
		log:    logger.Get(),
	}
}

// Blacklist records the token for ttl. A non-positive ttl is a no-op:
// the token has already expired on its own and must not outlive its
// signed expiry in the cache.
func (c *RevocationCache) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, blacklistKeyPrefix+token, "revoked", ttl).Err()
}

// IsBlacklisted reports whether the token has been revoked
func (c *RevocationCache) IsBlacklisted(ctx context.Context, token string) bool {
	n, err := c.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		c.log.Warn("Revocation cache unreachable, failing open",
			zap.Error(err),
		)
		return false
	}
	return n > 0
}

// Remove drops the token from the blacklist
func (c *RevocationCache) Remove(ctx context.Context, token string) error {
	return c.client.Del(ctx, blacklistKeyPrefix+token).Err()
}

// RemainingTTL returns how long the blacklist entry has left. Returns
// zero if the token is not blacklisted.
func (c *RevocationCache) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	if ttl < 0 {
		// -2 means no key, -1 means no expiry; neither counts here
		return 0, nil
	}
	return ttl, nil
}
