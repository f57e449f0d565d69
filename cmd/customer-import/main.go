// Command customer-import loads customers from a JSON-lines file, plain or
// gzip-compressed, through the same bulk-create path as the GraphQL API.
//
// Each line is an object with "name", "email" and optional "phone".
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/internal/validation"
)

func main() {
	var (
		databaseURL string
		opts        options
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.path, "file", "", "customers JSON-lines file, .gz for gzip")
	flag.IntVar(&opts.batchSize, "batch-size", 100, "customers per bulk create call")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent bulk create calls")
	flag.UintVar(&opts.expected, "expected", 1_000_000, "expected number of records, sizes the duplicate filter")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.path == "" {
		slog.Error("--file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, opts); err != nil {
		slog.Error("customer import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, opts options) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := customer.NewService(postgres.NewCustomerRepository(pool), validation.New())
	st, err := importFile(ctx, svc, opts)
	if err != nil {
		return err
	}

	slog.Info("customer import completed",
		slog.Int64("lines", st.lines.Load()),
		slog.Int64("malformed", st.malformed.Load()),
		slog.Int64("created", st.created.Load()),
		slog.Int64("failed", st.failed.Load()),
		slog.Int64("suspected_duplicates", st.suspectedDuplicates.Load()),
	)
	return nil
}
