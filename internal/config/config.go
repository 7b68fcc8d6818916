package config

import (
	"time"

	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/database"
	"github.com/goliatone/go-advocate-search/search"
)

// Config is the root application configuration.
type Config struct {
	App      AppConfig       `yaml:"app"`
	Log      LogConfig       `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
	Database database.Config `yaml:"database"`
	Cache    CacheConfig     `yaml:"cache"`
	Search   search.Bounds   `yaml:"search"`
	NATS     NATSConfig      `yaml:"nats"`
	Admin    AdminConfig     `yaml:"admin"`
}

// AppConfig holds process level settings.
type AppConfig struct {
	Env string `yaml:"env" env:"APP_ENV" env-default:"local"`
}

// LogConfig holds logging settings. An empty level keeps the environment default.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// CacheConfig holds in-process cache tuning.
type CacheConfig struct {
	Capacity           int           `yaml:"capacity"            env:"CACHE_CAPACITY"            env-default:"10000"`
	NumShards          int           `yaml:"num_shards"          env:"CACHE_NUM_SHARDS"          env-default:"256"`
	TTL                time.Duration `yaml:"ttl"                 env:"CACHE_TTL"                 env-default:"5m"`
	ListTTL            time.Duration `yaml:"list_ttl"            env:"CACHE_LIST_TTL"            env-default:"60s"`
	SearchTTL          time.Duration `yaml:"search_ttl"          env:"CACHE_SEARCH_TTL"          env-default:"300s"`
	EvictionPercentage int           `yaml:"eviction_percentage" env:"CACHE_EVICTION_PERCENTAGE" env-default:"10"`
}

// NATSConfig holds messaging settings. An empty URL disables the
// invalidation subscriber.
type NATSConfig struct {
	URL               string `yaml:"url"                env:"NATS_URL"`
	InvalidateSubject string `yaml:"invalidate_subject" env:"NATS_INVALIDATE_SUBJECT" env-default:"advocates.invalidate"`
}

// AdminConfig gates operator endpoints.
type AdminConfig struct {
	InvalidateEnabled bool `yaml:"invalidate_enabled" env:"ADMIN_INVALIDATE_ENABLED" env-default:"false"`
}

// ToCache maps the cache settings onto cache.Config, keeping the
// remaining defaults.
func (c CacheConfig) ToCache() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Capacity = c.Capacity
	cfg.NumShards = c.NumShards
	cfg.TTL = c.TTL
	cfg.EvictionPercentage = c.EvictionPercentage
	cfg.TagTTLs = map[string]time.Duration{
		cache.TagList:   c.ListTTL,
		cache.TagSearch: c.SearchTTL,
	}
	return cfg
}

// NATSEnabled reports whether a NATS server is configured.
func (c *Config) NATSEnabled() bool {
	return c.NATS.URL != ""
}
