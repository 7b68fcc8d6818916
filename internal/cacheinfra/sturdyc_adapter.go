package cacheinfra

import (
	"context"
	"reflect"
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Entries       int
	Invalidations uint64
}

// sweepEvery is the number of tracked reads between registry sweeps.
const sweepEvery = 1024

// tier is a sturdyc client and the TTL it was built with.
type tier struct {
	client *sturdyc.Client[any]
	ttl    time.Duration
}

// tracked is a registry entry. Past expires the cached value is gone and the
// entry can be dropped.
type tracked struct {
	tier    *tier
	expires time.Time
}

// nilValue stands in for a nil result, which sturdyc cannot store in a
// Client[any].
type nilValue struct{}

// fetchFailed is returned alongside a fetch error so sturdyc passes the
// error through instead of reporting an invalid type.
type fetchFailed struct{}

// SturdycService wraps sturdyc clients, one per TTL class, and keeps a tag
// registry so related entries can be evicted together. Registry entries
// expire with the TTL of their tier and are swept periodically.
type SturdycService struct {
	cfg      Config
	fallback *tier
	tiers    map[string]*tier
	now      func() time.Time

	// keyTier remembers which tier stores a key.
	keyTier *xsync.MapOf[string, tracked]
	// tagKeys maps a tag to the keys registered under it and their expiry.
	tagKeys *xsync.MapOf[string, *xsync.MapOf[string, time.Time]]

	tracks        atomic.Uint64
	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// NewSturdycService creates a new sturdyc cache service adapter.
// It validates the configuration and builds one sturdyc client per tag TTL
// class plus a fallback client using the default TTL.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SturdycService{
		cfg:     cfg,
		tiers:   make(map[string]*tier, len(cfg.TagTTLs)),
		now:     time.Now,
		keyTier: xsync.NewMapOf[string, tracked](),
		tagKeys: xsync.NewMapOf[string, *xsync.MapOf[string, time.Time]](),
	}

	s.fallback = newTier(cfg, cfg.TTL)
	for tag, ttl := range cfg.TagTTLs {
		s.tiers[tag] = newTier(cfg, ttl)
	}

	return s, nil
}

func newTier(cfg Config, ttl time.Duration) *tier {
	return &tier{
		client: sturdyc.New[any](
			cfg.Capacity,
			cfg.NumShards,
			ttl,
			cfg.EvictionPercentage,
			cfg.ToSturdycOptions()...,
		),
		ttl: ttl,
	}
}

// validateFetchFn performs comprehensive validation of the fetchFn parameter
// to ensure it matches the expected signature: func(context.Context) (T, error)
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnValue := reflect.ValueOf(fetchFn)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// GetOrFetch returns the cached value for key or runs fetchFn, stores its
// result and returns it. Tags attached to ctx with WithTags select the TTL
// tier and register the key for tag invalidation.
//
// Concurrent callers for the same key share a single in-flight fetch.
// Errors are returned to the caller and never cached.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	tags := TagsFromContext(ctx)
	t := s.tierFor(tags)
	s.track(key, t, tags)

	var fetched atomic.Bool
	typedFetchFn := func(ctx context.Context) (any, error) {
		fetched.Store(true)
		result, err := callFetchFunctionWithReflection(ctx, fetchFn)
		switch {
		case err != nil:
			return fetchFailed{}, err
		case result == nil:
			return nilValue{}, nil
		}
		return result, nil
	}

	result, err := t.client.GetOrFetch(ctx, key, typedFetchFn)
	if fetched.Load() {
		s.misses.Add(1)
	} else if err == nil {
		s.hits.Add(1)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := result.(nilValue); ok {
		return nil, nil
	}
	return result, nil
}

// callFetchFunctionWithReflection uses reflection to call any function that matches
// the FetchFn[T] signature: func(context.Context) (T, error)
// fetchFn is guaranteed to be valid as it is pre validated by validateFetchFn.
func callFetchFunctionWithReflection(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	fnValue := reflect.ValueOf(fetchFn)
	results := fnValue.Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	var err error

	resultValue := results[0]
	if resultValue.IsValid() && resultValue.CanInterface() {
		result = resultValue.Interface()
	}

	errorValue := results[1]
	if errorValue.IsValid() && !errorValue.IsNil() {
		err = errorValue.Interface().(error)
	}

	return result, err
}

// Delete removes a single entry from the cache.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.deleteKey(key)
	return nil
}

// InvalidateTags evicts every entry registered under any of tags.
// Unknown tags are ignored.
func (s *SturdycService) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, ok := s.tagKeys.LoadAndDelete(tag)
		if !ok {
			continue
		}
		keys.Range(func(key string, _ time.Time) bool {
			s.deleteKey(key)
			return true
		})
		s.invalidations.Add(1)
	}
	return nil
}

// Keys returns the keys currently stored across all tiers, sorted.
func (s *SturdycService) Keys() []string {
	var keys []string
	for _, client := range s.clients() {
		keys = append(keys, client.ScanKeys()...)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns hit, miss, entry and invalidation counters. Expired registry
// entries are swept as a side effect.
func (s *SturdycService) Stats() Stats {
	s.sweep()

	entries := 0
	for _, client := range s.clients() {
		entries += client.Size()
	}
	return Stats{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Entries:       entries,
		Invalidations: s.invalidations.Load(),
	}
}

func (s *SturdycService) tierFor(tags []string) *tier {
	for _, tag := range tags {
		if t, ok := s.tiers[tag]; ok {
			return t
		}
	}
	return s.fallback
}

func (s *SturdycService) clients() []*sturdyc.Client[any] {
	out := make([]*sturdyc.Client[any], 0, len(s.tiers)+1)
	out = append(out, s.fallback.client)
	for _, t := range s.tiers {
		out = append(out, t.client)
	}
	return out
}

// track registers key under its tier and tags before the fetch runs, so an
// invalidation racing with the fetch still finds the key. The entry lives as
// long as a value stored now would.
func (s *SturdycService) track(key string, t *tier, tags []string) {
	expires := s.now().Add(t.ttl)
	s.keyTier.Store(key, tracked{tier: t, expires: expires})
	for _, tag := range tags {
		set, _ := s.tagKeys.LoadOrCompute(tag, func() *xsync.MapOf[string, time.Time] {
			return xsync.NewMapOf[string, time.Time]()
		})
		set.Store(key, expires)
	}

	if s.tracks.Add(1)%sweepEvery == 0 {
		s.sweep()
	}
}

// sweep drops registry entries whose values have expired. Tag sets are kept
// even when empty; there is one per tag, not per key.
func (s *SturdycService) sweep() {
	now := s.now()
	s.keyTier.Range(func(key string, e tracked) bool {
		if now.After(e.expires) {
			s.keyTier.Compute(key, func(cur tracked, loaded bool) (tracked, bool) {
				return cur, !loaded || now.After(cur.expires)
			})
		}
		return true
	})
	s.tagKeys.Range(func(_ string, set *xsync.MapOf[string, time.Time]) bool {
		set.Range(func(key string, expires time.Time) bool {
			if now.After(expires) {
				set.Compute(key, func(cur time.Time, loaded bool) (time.Time, bool) {
					return cur, !loaded || now.After(cur)
				})
			}
			return true
		})
		return true
	})
}

func (s *SturdycService) deleteKey(key string) {
	if e, ok := s.keyTier.LoadAndDelete(key); ok {
		e.tier.client.Delete(key)
		return
	}
	for _, client := range s.clients() {
		client.Delete(key)
	}
}
