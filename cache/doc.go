// Package cache provides the read-through cache used by the advocate directory.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: read-through GetOrFetch with tag based invalidation
//   - KeySerializer: builds stable cache keys from method names and arguments
//
// The default CacheService is backed by sturdyc. Entries are grouped into TTL
// classes chosen by the tags attached to the request context:
//
//	ctx = cache.WithTags(ctx, cache.TagAdvocates, cache.TagSearch)
//	rows, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]*advocate.Advocate, error) {
//		return store.Find(ctx, predicate.Rows(page, limit)...)
//	})
//
// The first tag with a configured TTL class selects where the entry lives;
// reads without a known tag use Config.TTL.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Strings: quoted, so separators inside user text cannot forge another key
//   - Function pointers: %p formatting, stable within a process only
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Complex types: JSON fallback
//
// # Invalidation
//
// InvalidateTags evicts every entry registered under any of the given tags.
// The directory is read-only through the API, so invalidation is driven by
// the seed command, the NATS subscriber and the admin endpoint.
package cache
