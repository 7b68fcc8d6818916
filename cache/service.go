package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-advocate-search/internal/cacheinfra"
)

// ErrInvalidResultType is returned by GetOrFetch when the cached value does
// not have the type the caller asked for.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Stats is a snapshot of cache hits, misses, live entries and tag invalidations.
type Stats = cacheinfra.Stats

// CacheService exposes the read-through caching operations used by the
// advocate read path. Tags attached with WithTags select the TTL class of an
// entry and let InvalidateTags evict related entries together.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	InvalidateTags(ctx context.Context, tags ...string) error
	Stats() Stats
}

// WithTags returns a context that registers cache reads under tags.
func WithTags(ctx context.Context, tags ...string) context.Context {
	return cacheinfra.WithTags(ctx, tags...)
}

// TagsFromContext returns the tags attached to ctx.
func TagsFromContext(ctx context.Context) []string {
	return cacheinfra.TagsFromContext(ctx)
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}

	// A nil interface value is the zero value of interface and pointer types.
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T, want %T", ErrInvalidResultType, key, result, zero)
	}
	return typed, nil
}
