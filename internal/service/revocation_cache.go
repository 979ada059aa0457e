package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pagebrief/entitlement-service/pkg/database"
)

// RevocationCache keeps fingerprints of revoked credentials in Redis so
// that verification can reject them without a store round trip. It is a
// fast path only: the credential store's revoked flag stays authoritative,
// and a cache miss or Redis outage falls through to the store check.
type RevocationCache struct {
	redis *database.Redis
}

// NewRevocationCache creates a new revocation cache
func NewRevocationCache(redis *database.Redis) *RevocationCache {
	return &RevocationCache{redis: redis}
}

// Add marks a credential fingerprint as revoked until its natural expiry
func (s *RevocationCache) Add(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := fmt.Sprintf("revoked:credential:%s", fingerprint)
	if err := s.redis.Client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache revocation: %w", err)
	}
	return nil
}

// IsRevoked checks whether a credential fingerprint is cached as revoked
func (s *RevocationCache) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	key := fmt.Sprintf("revoked:credential:%s", fingerprint)
	exists, err := s.redis.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation cache: %w", err)
	}
	return exists > 0, nil
}
