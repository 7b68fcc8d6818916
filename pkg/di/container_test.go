package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/config"
	"github.com/goliatone/go-advocate-search/internal/database"
	"github.com/goliatone/go-advocate-search/internal/events"
	"github.com/goliatone/go-advocate-search/pkg/testsupport"
	"github.com/goliatone/go-advocate-search/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Server: config.ServerConfig{
			Addr:            ":0",
			ShutdownTimeout: time.Second,
		},
		Database: database.Config{
			Driver:       database.DriverSQLite,
			QueryTimeout: time.Second,
		},
		Cache: config.CacheConfig{
			Capacity:           1000,
			NumShards:          16,
			TTL:                5 * time.Minute,
			ListTTL:            60 * time.Second,
			SearchTTL:          300 * time.Second,
			EvictionPercentage: 10,
		},
		Search: search.DefaultBounds(),
		NATS:   config.NATSConfig{InvalidateSubject: events.DefaultSubject},
	}
}

func newTestContainer(t testing.TB, cfg *config.Config) *Container {
	t.Helper()

	db := testsupport.OpenDB(t)
	testsupport.SeedAdvocates(t, db)

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)), WithDB(db))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })
	return c
}

func TestNewContainer(t *testing.T) {
	c := newTestContainer(t, testConfig())

	assert.NotNil(t, c.CacheService())
	assert.NotNil(t, c.KeySerializer())
	assert.NotNil(t, c.Store())
	assert.NotNil(t, c.Search())
	assert.NotNil(t, c.Registry())
	assert.Nil(t, c.Publisher())
	assert.Equal(t, Namespace, c.Advocates().Namespace())
	assert.Equal(t, search.DefaultBounds(), c.Search().Bounds())
}

func TestNewContainer_InvalidCacheConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Capacity = 0

	_, err := NewContainer(context.Background(), cfg, nil, WithDB(testsupport.OpenDB(t)))
	assert.ErrorContains(t, err, "create cache service")
}

func TestNewContainer_OpensConfiguredDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.Database.DSN = "file:di_open?mode=memory&cache=shared"

	c, err := NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, advocate.CreateSchema(context.Background(), c.db))
	assert.NoError(t, c.Store().Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNewContainer_BadDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "oracle"
	cfg.Database.DSN = "x"

	_, err := NewContainer(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestContainerSingletonBehavior(t *testing.T) {
	c := newTestContainer(t, testConfig())

	assert.Same(t, c.Advocates(), c.Advocates())
	assert.Equal(t, c.CacheService(), c.CacheService())
	assert.Equal(t, c.KeySerializer(), c.KeySerializer())
}

func TestKeySerializerIntegration(t *testing.T) {
	c := newTestContainer(t, testConfig())

	testCases := []struct {
		name     string
		method   string
		args     []any
		expected string
	}{
		{name: "no args", method: "advocates.list.count", expected: "advocates.list.count"},
		{name: "search text", method: "advocates.search.rows", args: []any{"smith", 1, 10}, expected: `advocates.search.rows::"smith"::1::10`},
		{name: "nil arg", method: "advocates.get", args: []any{nil}, expected: "advocates.get::nil"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.KeySerializer().SerializeKey(tc.method, tc.args...))
		})
	}
}

func TestNewCachedRepository_SharesCache(t *testing.T) {
	c := newTestContainer(t, testConfig())
	ctx := context.Background()

	other := NewCachedRepository[*advocate.Advocate](c, c.Store())
	_, err := other.GetByID(ctx, advocate.SampleID(5559876543).String())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), c.CacheService().Stats().Misses)
	assert.Equal(t, "advocate", other.Namespace())
}

func TestSearchThroughContainer(t *testing.T) {
	c := newTestContainer(t, testConfig())
	ctx := context.Background()

	resp, err := c.Search().Search(ctx, search.Request{Search: "smith"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Jane", resp.Data[0].FirstName)

	_, err = c.Search().Search(ctx, search.Request{Search: "smith"})
	require.NoError(t, err)

	stats := c.CacheService().Stats()
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits)

	require.NoError(t, c.CacheService().InvalidateTags(ctx, cache.TagAdvocates))
	assert.Zero(t, c.CacheService().Stats().Entries)
}
