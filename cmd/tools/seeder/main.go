package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/config"
	"github.com/noah-isme/backend-masala/internal/events"
	"github.com/noah-isme/backend-masala/internal/obs"
)

// Seeder imports a supplier feed into the products table. Feed records may
// use any of the legacy field spellings; normalisation happens here, once,
// so the database only ever holds the canonical shape.
func main() {
	var (
		file   = flag.String("file", "feed.json", "path to the supplier feed JSON file")
		dryRun = flag.Bool("dry-run", false, "normalise and report without writing")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("read feed")
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Fatal().Err(err).Msg("decode feed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	store := &catalog.Store{Pool: pool}
	bus := &events.Bus{Store: &events.PGStore{Pool: pool}}
	var imported, skipped int
	for _, raw := range records {
		item, err := catalog.NormalizeItem(raw)
		if err != nil {
			logger.Warn().Err(err).Msg("skipping record")
			skipped++
			continue
		}
		if *dryRun {
			logger.Info().Str("slug", item.Slug).Int64("retail_price", item.RetailPrice).Msg("would import")
			imported++
			continue
		}
		id, err := store.Upsert(ctx, item)
		if err != nil {
			logger.Fatal().Err(err).Str("slug", item.Slug).Msg("upsert item")
		}
		if _, err := bus.Emit(ctx, events.TopicCatalogUpdated, id, map[string]any{
			"slug":        item.Slug,
			"retailPrice": item.RetailPrice,
			"stock":       item.Stock,
		}); err != nil {
			logger.Warn().Err(err).Str("slug", item.Slug).Msg("emit catalog.updated")
		}
		logger.Info().Str("id", id).Str("slug", item.Slug).Msg("imported")
		imported++
	}

	if !*dryRun {
		if redisOpts, err := redis.ParseURL(cfg.RedisURL); err == nil {
			client := redis.NewClient(redisOpts)
			defer func() { _ = client.Close() }()
			cache := catalog.NewCache(client, cfg.CatalogCacheTTL)
			if err := cache.Invalidate(ctx,
				"catalog:items:list:"+string(catalog.StorefrontRetail),
				"catalog:items:list:"+string(catalog.StorefrontCaterer),
			); err != nil {
				logger.Warn().Err(err).Msg("invalidate catalog cache")
			}
		}
	}
	logger.Info().Int("imported", imported).Int("skipped", skipped).Msg("seed complete")
}
