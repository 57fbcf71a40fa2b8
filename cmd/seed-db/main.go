package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/seed"
	"github.com/xenking/inventory-offers/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file (default: bundled sample catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	c, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)
	slog.Info("upserting catalog", slog.Int("items", len(c.Items)), slog.Int("offers", len(c.Offers)))

	return seed.Apply(ctx, c,
		func(ctx context.Context, it *item.Item) error {
			if err := store.Items().Upsert(ctx, it); err != nil {
				return err
			}
			slog.Info("upserted item", slog.String("id", it.ID), slog.String("name", it.Name))
			return nil
		},
		func(ctx context.Context, o *offer.Offer) error {
			if err := store.Offers().Upsert(ctx, o); err != nil {
				return err
			}
			slog.Info("upserted offer", slog.String("id", o.ID), slog.String("name", o.Name))
			return nil
		},
	)
}

func loadCatalog(path string) (*seed.Catalog, error) {
	if path == "" {
		slog.Info("using bundled sample catalog")
		return seed.Default()
	}

	slog.Info("reading catalog file", slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}
	return seed.Parse(data)
}
