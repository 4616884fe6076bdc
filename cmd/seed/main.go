package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"hotel_reviews/internal/adapters/catalog"
	"hotel_reviews/internal/adapters/observability"
	"hotel_reviews/internal/app"
	"hotel_reviews/internal/shared"
	"hotel_reviews/internal/storage"
)

func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.SeedPropertyIDs) == 0 {
		log.Fatal().Msg("SEED_PROPERTY_IDS is empty; nothing to import")
	}
	if cfg.StoreBackend == "" || cfg.StoreBackend == "memory" {
		log.Fatal().Msg("seeding needs a durable STORE_BACKEND (mysql or redis)")
	}

	log.Info().
		Str("base", cfg.CatalogBase).
		Str("backend", cfg.StoreBackend).
		Int("workers", cfg.SeedWorkers).
		Int("properties", len(cfg.SeedPropertyIDs)).
		Msg("seed starting")

	store, closer, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store failed")
	}
	defer closer.Close()

	client, err := catalog.New(cfg.CatalogBase, cfg.CatalogKey, cfg.CatalogRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog client")
	}

	// hotels go through the repository so re-runs stay idempotent
	repo := app.NewRepository(store, nil)
	stats, err := app.NewSeedService(client, repo).Seed(ctx, cfg.SeedPropertyIDs, cfg.SeedWorkers)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int64("imported", stats.Imported).
		Int64("missing", stats.Missing).
		Int64("failed", stats.Failed).
		Msg("seed completed")
}
