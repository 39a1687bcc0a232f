// Package identity maps in-game identifiers to web application user ids.
//
// Resolver runs the lookups against the linking table, either a plain
// table with one identifier column or a keyed profile-field table. Cache sits
// in front of any Lookup, caches misses as well as hits, and drops every
// entry once it reaches capacity:
//
//	resolver := identity.NewResolver(store, cfg.Linking.Table, log)
//	cache := identity.NewCache(cfg.Cache.Capacity, resolver, metrics, log)
//	userID := cache.Get(ctx, uuid)
//
// RedisLookup can be placed between the two to share results between game
// servers. It falls back to the database when Redis is unavailable.
package identity
