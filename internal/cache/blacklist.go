package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when an operation needs Redis and no client is configured.
var ErrUnavailable = errors.New("redis unavailable")

// Blacklist marks a token id as revoked until the token would have expired anyway.
func Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted reports whether a token id has been revoked. Without Redis no
// token is considered revoked.
func IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
