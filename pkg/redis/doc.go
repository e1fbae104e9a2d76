// Package redis connects the go-redis client used by the shared tenant cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := tenant.NewCachedStore(landlordStore, tenant.NewRedisCache(client), ttl, log)
//
// Healthcheck adapts any redis.UniversalClient to a readiness probe.
package redis
