// Package repositorycache provides a read-through caching decorator for record stores.
//
// # Overview
//
// CachedRepository wraps the read side of a store (Find, Count and GetByID)
// and serves repeated reads from a cache.CacheService. Criteria are bun
// closures and cannot be keyed, so callers describe each query with a Scope:
// a name plus the arguments that fully determine it.
//
//	advocates := repositorycache.New[*advocate.Advocate](store, svc, cache.NewDefaultKeySerializer(),
//		repositorycache.WithNamespace("advocates"),
//		repositorycache.WithEntityTags(cache.TagAdvocates),
//	)
//
//	scope := repositorycache.NewScope("search", text).Tagged(cache.TagSearch)
//	rows, err := advocates.Find(ctx, scope.WithArgs(page, limit), pred.Rows(page, limit)...)
//	total, err := advocates.Count(ctx, scope, pred.Count()...)
//
// Keys take the form namespace.scope.op::arg::arg, for example
// advocates.search.rows::"smith"::1::10.
//
// # Tags
//
// Every read is registered under the scope tags followed by the entity tags.
// The first tag with a configured TTL class decides how long the entry
// lives. Invalidate with no arguments evicts everything under the entity
// tags.
//
// # Error Handling
//
// Errors from the source are returned unchanged and never cached.
package repositorycache
