//go:build integration

package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/storage/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "crm",
				"POSTGRES_PASSWORD": "crm",
				"POSTGRES_DB":       "crm",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://crm:crm@%s:%s/crm?sslmode=disable", host, port.Port())
}

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	require.NoError(t, run(ctx, dsn))
	require.NoError(t, run(ctx, dsn), "second run must reuse existing rows")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	customers, err := postgres.NewCustomerRepository(pool).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(demoCustomers), customers)

	products, err := postgres.NewProductRepository(pool).List(ctx, product.DefaultSort)
	require.NoError(t, err)
	require.Len(t, products, len(demoProducts))
	assert.Equal(t, "Laptop", products[0].Name)
	assert.True(t, decimal.RequireFromString("999.99").Equal(products[0].Price))
	assert.Equal(t, 10, products[0].Stock)
	assert.Equal(t, "Mouse", products[1].Name)
	assert.Equal(t, 50, products[1].Stock)
}
