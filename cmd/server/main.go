package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/mswatii/cs2-casecheck/internal/api"
	"github.com/mswatii/cs2-casecheck/internal/config"
	"github.com/mswatii/cs2-casecheck/internal/currency"
	"github.com/mswatii/cs2-casecheck/internal/database"
	"github.com/mswatii/cs2-casecheck/internal/fetch"
	"github.com/mswatii/cs2-casecheck/internal/pipeline"
	"github.com/mswatii/cs2-casecheck/internal/pricing"
	"github.com/mswatii/cs2-casecheck/internal/sites"
)

func main() {
	// Load environment variables from .env file
	cfg := config.Load()
	ctx := context.Background()

	client := fetch.New(&fasthttp.Client{
		Name:                fetch.UserAgent,
		MaxIdleConnDuration: time.Minute,
	}, cfg.Prices.FetchTimeout)

	// Connect to Redis when something is backed by it
	var rdb *redis.Client
	if cfg.NeedsRedis() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			if cfg.Prices.Store == config.StoreRedis {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			log.Printf("Warning: Redis unavailable, keeping preferences in memory: %v", err)
			rdb.Close()
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Connect to database when something is backed by it
	var db *database.Database
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.NewDatabase(ctx, cfg.DatabaseURL())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Create tables if they don't exist
		if err := db.CreateTables(ctx); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
	}

	var store pricing.Store
	switch cfg.Prices.Store {
	case config.StoreRedis:
		store = pricing.NewRedisStore(rdb, pricing.DefaultRedisKey)
	case config.StorePostgres:
		store = database.NewSnapshotStore(db, database.DefaultSnapshotID)
	case config.StoreMemory:
		store = pricing.NewMemoryStore()
	default:
		log.Fatalf("Unknown PRICE_STORE %q", cfg.Prices.Store)
	}

	prices := pricing.NewTable(
		pricing.NewHTTPSource(cfg.Prices.SourceURL, client),
		store,
		pricing.WithTTL(cfg.Prices.CacheTTL),
	)

	var prefs currency.Preferences = currency.NewMemoryPreferences()
	if rdb != nil {
		prefs = currency.NewRedisPreferences(rdb)
	}
	rates := currency.NewRateProvider(cfg.Currency.ExchangeRateURL, client)

	var adapters []sites.Adapter
	if cfg.Sites.SkinBoxURL != "" {
		adapters = append(adapters, sites.NewSkinBox(cfg.Sites.SkinBoxURL))
	}
	if cfg.Sites.CaseDropURL != "" {
		adapters = append(adapters, sites.NewCaseDrop(cfg.Sites.CaseDropURL))
	}
	if len(adapters) == 0 {
		log.Printf("Warning: no sites configured, set SKINBOX_URL or CASEDROP_URL")
	}
	registry := sites.NewRegistry(client, adapters...)

	opts := []pipeline.Option{
		pipeline.WithPreferences(prefs),
		pipeline.WithRates(rates),
		pipeline.WithDefaultCurrency(cfg.Currency.Default),
	}
	var history api.HistoryReader
	if cfg.RecordViews {
		views := database.NewViewStore(db)
		opts = append(opts, pipeline.WithRecorder(views))
		history = views
	}
	cases := pipeline.New(registry, prices, opts...)

	// Warm the price index so the first view does not wait for it
	go func() {
		snap, err := prices.Load(ctx)
		if err != nil {
			log.Printf("Warning: initial price load failed: %v", err)
			return
		}
		log.Printf("Initial price index ready with %d entries", snap.Len())
	}()

	handler := api.NewHandler(api.Services{
		Cases:           cases,
		Prices:          prices,
		Sites:           registry,
		Rates:           rates,
		Preferences:     prefs,
		History:         history,
		DefaultCurrency: cfg.Currency.Default,
	})

	// Start server
	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := fasthttp.ListenAndServe(":"+cfg.Server.Port, handler.HandleRequest); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
