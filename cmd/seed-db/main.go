package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/internal/validation"
)

var demoCustomers = []customer.CreateInput{
	{Name: "Alice", Email: "alice@example.com", Phone: "+1234567890"},
	{Name: "Bob", Email: "bob@example.com", Phone: "123-456-7890"},
}

var demoProducts = []product.CreateInput{
	{Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 10},
	{Name: "Mouse", Price: decimal.RequireFromString("49.99"), Stock: 50},
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	validate := validation.New()
	customers := customer.NewService(postgres.NewCustomerRepository(pool), validate)
	products := product.NewService(postgres.NewProductRepository(pool), validate)

	for _, in := range demoCustomers {
		_, err := customers.Create(ctx, in)
		switch {
		case errors.Is(err, customer.ErrDuplicateEmail):
			slog.Info("customer exists", slog.String("email", in.Email))
		case err != nil:
			return errors.Wrapf(err, "create customer %s", in.Email)
		default:
			slog.Info("customer created", slog.String("email", in.Email))
		}
	}

	// Products have no natural key; match on name.
	existing, err := products.List(ctx, "")
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}
	for _, in := range demoProducts {
		if names[in.Name] {
			slog.Info("product exists", slog.String("name", in.Name))
			continue
		}
		if _, err := products.Create(ctx, in); err != nil {
			return errors.Wrapf(err, "create product %s", in.Name)
		}
		slog.Info("product created", slog.String("name", in.Name))
	}
	return nil
}
