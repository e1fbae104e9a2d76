package tenant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samschool/tenancy/pkg/cache"
)

// CachedStore decorates a Store with a Cache. Only successful lookups are
// cached; misses always reach the underlying store.
//
// Database passwords never enter the Cache. They are kept in a process-local
// LRU for the same TTL, and a cached tenant whose password this process does
// not hold is reloaded from the store.
type CachedStore struct {
	store       Store
	cache       Cache
	ttl         time.Duration
	logger      *slog.Logger
	credentials *cache.LRU[uuid.UUID, string]
}

// CachedStoreOption configures a CachedStore.
type CachedStoreOption func(*cachedStoreOptions)

type cachedStoreOptions struct {
	size int
}

// WithCredentialCacheSize caps how many tenants' passwords are held in memory.
func WithCredentialCacheSize(n int) CachedStoreOption {
	return func(o *cachedStoreOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

func NewCachedStore(store Store, c Cache, ttl time.Duration, logger *slog.Logger, opts ...CachedStoreOption) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	o := cachedStoreOptions{size: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &CachedStore{
		store:       store,
		cache:       c,
		ttl:         ttl,
		logger:      logger,
		credentials: cache.NewLRU[uuid.UUID, string](o.size),
	}
}

func subdomainKey(s string) string { return "subdomain:" + strings.ToLower(s) }
func domainKey(d string) string    { return "domain:" + strings.ToLower(d) }
func idKey(id uuid.UUID) string    { return "id:" + id.String() }

func (s *CachedStore) ActiveBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return s.lookup(ctx, subdomainKey(subdomain), func() (*Tenant, error) {
		return s.store.ActiveBySubdomain(ctx, subdomain)
	})
}

func (s *CachedStore) ByDomain(ctx context.Context, domain string) (*Tenant, error) {
	return s.lookup(ctx, domainKey(domain), func() (*Tenant, error) {
		return s.store.ByDomain(ctx, domain)
	})
}

func (s *CachedStore) ByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.lookup(ctx, idKey(id), func() (*Tenant, error) {
		return s.store.ByID(ctx, id)
	})
}

// Invalidate drops every cache entry that can point at t.
func (s *CachedStore) Invalidate(ctx context.Context, t *Tenant) error {
	s.credentials.Remove(t.ID)

	keys := []string{idKey(t.ID), subdomainKey(t.Subdomain)}
	if t.Domain != "" {
		keys = append(keys, domainKey(t.Domain))
	}
	return s.cache.Delete(ctx, keys...)
}

func (s *CachedStore) lookup(ctx context.Context, key string, load func() (*Tenant, error)) (*Tenant, error) {
	if t, ok := s.cache.Get(ctx, key); ok {
		if password, ok := s.credentials.Get(t.ID); ok {
			withPassword := *t
			withPassword.Database.Password = password
			return &withPassword, nil
		}
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	s.credentials.PutWithTTL(t.ID, t.Database.Password, s.ttl)
	if err := s.cache.Set(ctx, key, t, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to cache tenant",
			slog.String("key", key), slog.Any("error", err))
	}
	return t, nil
}
