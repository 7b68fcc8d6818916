package repositorycache

import (
	"context"
	"reflect"
	"slices"

	"github.com/goliatone/go-advocate-search/cache"
	repository "github.com/goliatone/go-repository-bun"
)

// Source is the read side of a record store that CachedRepository decorates.
type Source[T any] interface {
	Find(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
}

// Scope names a cached query. Criteria are closures and cannot be keyed
// reliably, so the caller describes the query with a name plus the arguments
// that fully determine it.
type Scope struct {
	Name string
	Args []any
	Tags []string
}

// NewScope returns a scope identified by name and args.
func NewScope(name string, args ...any) Scope {
	return Scope{Name: name, Args: args}
}

// WithArgs returns a copy of s with args appended to its identity.
func (s Scope) WithArgs(args ...any) Scope {
	s.Args = append(slices.Clone(s.Args), args...)
	return s
}

// Tagged returns a copy of s whose entries are also registered under tags.
func (s Scope) Tagged(tags ...string) Scope {
	s.Tags = append(slices.Clone(s.Tags), tags...)
	return s
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	namespace  string
	entityTags []string
}

// WithNamespace sets the prefix of every key built by the repository.
// Defaults to the snake_case name of T.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithEntityTags sets the tags carried by every cached read. Defaults to the
// namespace.
func WithEntityTags(tags ...string) Option {
	return func(o *options) {
		o.entityTags = tags
	}
}

// CachedRepository decorates a Source with read-through caching.
type CachedRepository[T any] struct {
	base          Source[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	entityTags    []string
}

// New creates a new CachedRepository that wraps the base source with caching.
func New[T any](base Source[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == "" {
		o.namespace = typeNamespace[T]()
	}
	if len(o.entityTags) == 0 {
		o.entityTags = []string{o.namespace}
	}
	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}

	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     o.namespace,
		entityTags:    o.entityTags,
	}
}

// Namespace returns the key prefix used by the repository.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// Find returns the records selected by criteria, cached under scope.
func (c *CachedRepository[T]) Find(ctx context.Context, scope Scope, criteria ...repository.SelectCriteria) ([]T, error) {
	key := c.key(scope, "rows")
	return cache.GetOrFetch(c.tagged(ctx, scope.Tags), c.cache, key, func(ctx context.Context) ([]T, error) {
		return c.base.Find(ctx, criteria...)
	})
}

// Count returns the number of records matching criteria, cached under scope.
func (c *CachedRepository[T]) Count(ctx context.Context, scope Scope, criteria ...repository.SelectCriteria) (int, error) {
	key := c.key(scope, "count")
	return cache.GetOrFetch(c.tagged(ctx, scope.Tags), c.cache, key, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// GetByID retrieves a record by ID, with caching. Errors, including not
// found, are never cached.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey(c.namespace+".get", id)
	return cache.GetOrFetch(c.tagged(ctx, nil), c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// Invalidate evicts every entry registered under tags, or under the entity
// tags when none are given.
func (c *CachedRepository[T]) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		tags = c.entityTags
	}
	return c.cache.InvalidateTags(ctx, tags...)
}

func (c *CachedRepository[T]) key(scope Scope, op string) string {
	method := c.namespace + "." + op
	if scope.Name != "" {
		method = c.namespace + "." + scope.Name + "." + op
	}
	return c.keySerializer.SerializeKey(method, scope.Args...)
}

// tagged attaches the scope tags ahead of the entity tags, so the scope
// picks the TTL class when it names one.
func (c *CachedRepository[T]) tagged(ctx context.Context, scopeTags []string) context.Context {
	tags := make([]string, 0, len(scopeTags)+len(c.entityTags))
	tags = append(tags, scopeTags...)
	tags = append(tags, c.entityTags...)
	return cache.WithTags(ctx, tags...)
}

func typeNamespace[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	ns := toSnake(t.Name())
	if ns == "" {
		return "records"
	}
	return ns
}
