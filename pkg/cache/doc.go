// Package cache provides a concurrency-safe LRU with optional per-entry TTL.
//
// It backs the tenant connection pool registry and the process-local tenant
// credentials. An eviction callback runs for every entry that leaves the
// cache, whether by capacity pressure, expiry, Remove or Clear. It runs with
// the cache lock held, so it should only record the value and leave slow
// work such as closing a pool to the caller:
//
//	pools := cache.NewLRU[string, *pool](100)
//	pools.SetEvictCallback(func(key string, p *pool) { retired = append(retired, p) })
package cache
