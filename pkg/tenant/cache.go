package tenant

import (
	"context"
	"time"
)

// Cache stores resolved tenants between requests. Implementations must be
// shared by every process that can change a tenant, otherwise Invalidate
// cannot reach them.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DefaultCacheSize is the default number of tenants whose database
// credentials a CachedStore keeps in memory.
const DefaultCacheSize = 1000

// NoOpCache disables caching.
type NoOpCache struct{}

func (NoOpCache) Get(context.Context, string) (*Tenant, bool)                 { return nil, false }
func (NoOpCache) Set(context.Context, string, *Tenant, time.Duration) error { return nil }
func (NoOpCache) Delete(context.Context, ...string) error                   { return nil }
