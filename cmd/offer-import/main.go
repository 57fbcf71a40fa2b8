package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/importer"
	"github.com/xenking/inventory-offers/internal/storage/postgres"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: offer-import [--database-url URL] FILE.jsonl.gz...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args()); err != nil {
		slog.Error("offer import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("offer import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)
	svc := offer.NewService(store.Offers(), store.Items())

	res, err := importer.New(store.Items(), svc, slog.Default()).Import(ctx, files)
	if err != nil {
		return errors.Wrap(err, "import offers")
	}

	for _, p := range res.Problems {
		slog.Warn("offer rejected",
			slog.String("file", p.File),
			slog.Int("line", p.Line),
			slog.String("error", p.Err.Error()),
		)
	}
	slog.Info("import summary",
		slog.Int("read", res.Read),
		slog.Int("created", res.Created),
		slog.Int("rejected", len(res.Problems)),
	)
	return nil
}
