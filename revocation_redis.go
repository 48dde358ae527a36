package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "portal-auth:revoked:"

// RedisRevocationStore shares the deny-list across instances. Keys expire
// with the token they revoke.
type RedisRevocationStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisRevocationStore wraps a go-redis client
func NewRedisRevocationStore(client redis.Cmdable, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RedisRevocationStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Revoke stores the id with a TTL matching the remaining token lifetime
func (r *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}

	ttl := time.Duration(0)
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(r.now())
		if ttl <= 0 {
			return nil
		}
	}

	if err := r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store revoked token").
			WithMetadata(map[string]any{"jti": tokenID})
	}
	return nil
}

// IsRevoked checks the id against redis
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to check revoked token").
			WithMetadata(map[string]any{"jti": tokenID})
	}
	return n > 0, nil
}
