package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const displayNamePrefix = "helpdesk:display_name:"

// DisplayNames caches submitter display names keyed by email.
type DisplayNames struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDisplayNames returns a cache over client. A nil client yields a cache
// whose lookups always miss.
func NewDisplayNames(client *redis.Client, ttl time.Duration) *DisplayNames {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DisplayNames{client: client, ttl: ttl}
}

// Get returns the cached name. ok is false on a miss or when Redis is absent.
func (d *DisplayNames) Get(ctx context.Context, email string) (name string, ok bool, err error) {
	if d == nil || d.client == nil {
		return "", false, nil
	}
	name, err = d.client.Get(ctx, displayNamePrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// Set stores name for email with the configured TTL.
func (d *DisplayNames) Set(ctx context.Context, email, name string) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Set(ctx, displayNamePrefix+email, name, d.ttl).Err()
}

// Forget drops any cached name for email.
func (d *DisplayNames) Forget(ctx context.Context, email string) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Del(ctx, displayNamePrefix+email).Err()
}
