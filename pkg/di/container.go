package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/config"
	"github.com/goliatone/go-advocate-search/internal/database"
	"github.com/goliatone/go-advocate-search/internal/events"
	"github.com/goliatone/go-advocate-search/internal/metrics"
	"github.com/goliatone/go-advocate-search/internal/transport/httpapi"
	"github.com/goliatone/go-advocate-search/repositorycache"
	"github.com/goliatone/go-advocate-search/search"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Namespace prefixes every advocate cache key.
const Namespace = "advocates"

// Container wires the directory service. It owns a single cache service and
// key serializer shared by every cached repository it creates, and closes the
// connections it opened.
type Container struct {
	cfg *config.Config
	log *zap.Logger

	db     *bun.DB
	ownsDB bool
	store  *advocate.Store

	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	advocates     *repositorycache.CachedRepository[*advocate.Advocate]
	search        *search.Service

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTP

	natsConn   *nats.Conn
	ownsNATS   bool
	publisher  *events.Publisher
	subscriber *events.Subscriber
}

// Option customizes container construction.
type Option func(*Container)

// WithDB makes the container use db instead of opening one from the
// configuration. The caller keeps ownership of db.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithNATS makes the container use conn instead of dialing NATS_URL. The
// caller keeps ownership of conn.
func WithNATS(conn *nats.Conn) Option {
	return func(c *Container) {
		c.natsConn = conn
	}
}

// NewContainer builds every component described by cfg. On error, whatever
// was already opened is closed.
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (_ *Container, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(c)
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.db == nil {
		c.db, err = database.Open(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		c.ownsDB = true
	}
	c.store = advocate.NewStore(c.db, advocate.WithQueryTimeout(cfg.Database.QueryTimeout))

	c.cacheService, err = cache.NewCacheService(cfg.Cache.ToCache())
	if err != nil {
		return nil, fmt.Errorf("create cache service: %w", err)
	}
	c.keySerializer = cache.NewDefaultKeySerializer()

	c.advocates = NewCachedRepository[*advocate.Advocate](c, c.store,
		repositorycache.WithNamespace(Namespace),
		repositorycache.WithEntityTags(cache.TagAdvocates),
	)
	c.search = search.NewService(c.advocates, search.WithBounds(cfg.Search))

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.httpMetrics = metrics.NewHTTP(c.registry)
	metrics.RegisterCache(c.registry, c.cacheService)

	if err := c.startEvents(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Container) startEvents() error {
	if c.natsConn == nil && c.cfg.NATSEnabled() {
		conn, err := events.Connect(c.cfg.NATS.URL, "advocates-api")
		if err != nil {
			return err
		}
		c.natsConn = conn
		c.ownsNATS = true
	}
	if c.natsConn == nil {
		return nil
	}

	c.publisher = events.NewPublisher(c.natsConn, c.cfg.NATS.InvalidateSubject)
	c.subscriber = events.NewSubscriber(c.cacheService, c.log)
	return c.subscriber.Subscribe(c.natsConn, c.publisher.Subject())
}

// Handler returns the HTTP API. The invalidation endpoint is mounted only
// when enabled in the configuration.
func (c *Container) Handler() http.Handler {
	opts := httpapi.Options{
		Logger:        c.log,
		Metrics:       c.httpMetrics,
		Gatherer:      c.registry,
		HealthTimeout: c.cfg.Database.QueryTimeout,
	}
	if c.cfg.Admin.InvalidateEnabled {
		opts.Invalidator = c.cacheService
		if c.publisher != nil {
			opts.Broadcaster = c.publisher
		}
	}
	return httpapi.NewRouter(c.search, c.store, opts)
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Store returns the uncached advocate store.
func (c *Container) Store() *advocate.Store {
	return c.store
}

// Advocates returns the cached advocate repository.
func (c *Container) Advocates() *repositorycache.CachedRepository[*advocate.Advocate] {
	return c.advocates
}

// Search returns the directory search service.
func (c *Container) Search() *search.Service {
	return c.search
}

// Registry returns the Prometheus registry served on /metrics.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Publisher returns the invalidation publisher, or nil without NATS.
func (c *Container) Publisher() *events.Publisher {
	return c.publisher
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Close releases the subscription and the connections the container opened.
func (c *Container) Close() error {
	var errs []error
	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}
	if c.ownsNATS && c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.ownsDB && c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// NewCachedRepository wraps base with the container's cache service and key
// serializer.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*advocate.Advocate](container, store)
func NewCachedRepository[T any](c *Container, base repositorycache.Source[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, c.cacheService, c.keySerializer, opts...)
}
