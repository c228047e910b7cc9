// Package cache provides optional Redis-backed caching of NCM list results.
//
// The NCM API enforces an undocumented per-key request rate, and operator
// tooling tends to re-poll the same collections (device inventory, alerts)
// on short loops. Caching completed list walks under a caller-configured TTL
// removes most of that repeat traffic.
//
// Only complete, unbounded list results are cached; partial results and
// single-resource reads never enter the cache.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Version:  "v2",
//		Endpoint: "routers",
//		Params:   url.Values{"group": []string{"123"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from NCM, then:
//		manager.Set(ctx, key, cache.NewEntry(data, ttl))
//	}
//
// # Metrics
//
// The manager exports Prometheus metrics:
//
//   - ncm_cache_hits_total - Cache hits
//   - ncm_cache_misses_total - Cache misses
//   - ncm_cache_errors_total{operation} - Cache operation errors
//   - ncm_cache_size_bytes - Bytes read from / written to the cache
package cache
