package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessPrefix = "auth:revoked:access:"

// RedisTokenRepo is the access-token denylist. Entries expire together with
// the token they revoke, so the set never outgrows the live tokens.
type RedisTokenRepo struct {
	client *redis.Client
}

func NewRedisTokenRepo(client *redis.Client) *RedisTokenRepo {
	return &RedisTokenRepo{
		client: client,
	}
}

func (r *RedisTokenRepo) RevokeAccess(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		// already expired, nothing to deny
		return nil
	}
	return r.client.Set(ctx, accessPrefix+jti, 1, ttl).Err()
}

func (r *RedisTokenRepo) IsAccessRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, accessPrefix+jti).Result()
	if err != nil {
		return true, err
	}
	return n > 0, nil
}

func (r *RedisTokenRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
