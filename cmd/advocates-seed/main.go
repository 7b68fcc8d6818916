// Command advocates-seed creates the advocates table and loads the sample
// directory. It is a development tool; production data is loaded out of band.
//
// Flags:
//
//	--reset  delete existing advocates before seeding
//
// When NATS is configured, an invalidation is published after a successful
// seed so running API instances drop their cached pages.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/config"
	"github.com/goliatone/go-advocate-search/internal/database"
	"github.com/goliatone/go-advocate-search/internal/events"
	logpkg "github.com/goliatone/go-advocate-search/internal/logger"
	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "delete existing advocates before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := advocate.CreateSchema(ctx, db); err != nil {
		logger.Fatal("create schema", zap.Error(err))
	}

	if *reset {
		res, err := db.NewDelete().Model((*advocate.Advocate)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			logger.Fatal("reset advocates", zap.Error(err))
		}
		deleted, _ := res.RowsAffected()
		logger.Info("advocates deleted", zap.Int64("rows", deleted))
	}

	store := advocate.NewStore(db, advocate.WithQueryTimeout(cfg.Database.QueryTimeout))

	existing, err := store.Count(ctx)
	if err != nil {
		logger.Fatal("count advocates", zap.Error(err))
	}
	if existing > 0 {
		logger.Info("advocates already present, nothing to seed", zap.Int("rows", existing))
		return
	}

	created, err := store.Insert(ctx, advocate.SampleDirectory())
	if err != nil {
		logger.Fatal("seed advocates", zap.Error(err))
	}
	logger.Info("advocates seeded", zap.Int("rows", len(created)))

	if !cfg.NATSEnabled() {
		return
	}

	conn, err := events.Connect(cfg.NATS.URL, "advocates-seed")
	if err != nil {
		logger.Warn("invalidation not published", zap.Error(err))
		return
	}
	defer conn.Close()

	inv := events.Invalidation{Tags: []string{cache.TagAdvocates}, Source: "seed"}
	if err := events.NewPublisher(conn, cfg.NATS.InvalidateSubject).Publish(ctx, inv); err != nil {
		logger.Warn("invalidation not published", zap.Error(err))
		return
	}
	logger.Info("invalidation published", zap.String("subject", cfg.NATS.InvalidateSubject))
}
