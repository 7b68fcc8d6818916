package config

import (
	"fmt"

	"github.com/goliatone/go-advocate-search/internal/database"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var environments = []any{"local", "dev", "test", "prod"}

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.App,
		validation.Field(&c.App.Env, validation.Required, validation.In(environments...)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Addr, validation.Required),
		validation.Field(&c.Server.ShutdownTimeout, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := c.Cache.ToCache().Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if c.NATSEnabled() {
		if err := validation.Validate(c.NATS.InvalidateSubject, validation.Required); err != nil {
			return fmt.Errorf("nats: invalidate_subject: %w", err)
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	driver, err := database.NormalizeDriver(c.Database.Driver)
	if err != nil {
		return err
	}
	c.Database.Driver = driver

	return validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.DSN, validation.Required),
		validation.Field(&c.Database.QueryTimeout, validation.Min(0)),
		validation.Field(&c.Database.MaxOpenConns, validation.Min(0)),
	)
}
