//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/crm/internal/crmclient"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/pkg/health"
)

var (
	server *httptest.Server
	client *crmclient.Client
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
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
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() { _ = pg.Terminate(context.Background()) }()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	pool, err := postgres.NewPool(ctx, fmt.Sprintf("postgres://crm:crm@%s:%s/crm?sslmode=disable", host, port.Port()))
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	probes := health.New()
	probes.Ready("postgres", 5*time.Second, health.Ping(pool))
	probes.SetReady(true)

	h, err := newHandler(ctx, &Config{CORS: CORSConfig{Origins: []string{"*"}}}, pool, probes,
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		log.Fatalf("handler: %v", err)
	}
	server = httptest.NewServer(h)
	defer server.Close()

	client = crmclient.New(crmclient.Config{URL: server.URL + "/graphql", Timeout: 10 * time.Second})
	return m.Run()
}

// exec posts a GraphQL operation and returns the decoded "data" object.
func exec(t *testing.T, query string, vars map[string]any) map[string]any {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/graphql", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out struct {
		Data   map[string]any   `json:"data"`
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Empty(t, out.Errors)
	return out.Data
}

func payload(data map[string]any, field string) map[string]any {
	return data[field].(map[string]any)
}

func TestProbes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestCRMFlow(t *testing.T) {
	ctx := context.Background()

	hello, err := client.Hello(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello, GraphQL!", hello)

	const createCustomer = `mutation($input: CreateCustomerInput!) {
  createCustomer(input: $input) { customer { id email } message }
}`
	input := map[string]any{"name": "Alice", "email": "alice@example.com", "phone": "+1234567890"}

	res := payload(exec(t, createCustomer, map[string]any{"input": input}), "createCustomer")
	assert.Equal(t, "Customer created successfully.", res["message"])
	customerID := res["customer"].(map[string]any)["id"].(string)

	res = payload(exec(t, createCustomer, map[string]any{"input": input}), "createCustomer")
	assert.Nil(t, res["customer"])
	assert.Equal(t, "Email already exists.", res["message"])

	const createProduct = `mutation($input: CreateProductInput!) {
  createProduct(input: $input) { product { id stock } message }
}`
	var productIDs []any
	for _, p := range []map[string]any{
		{"name": "Laptop", "price": 999.99, "stock": 10},
		{"name": "Mouse", "price": 49.99, "stock": 3},
	} {
		res := payload(exec(t, createProduct, map[string]any{"input": p}), "createProduct")
		productIDs = append(productIDs, res["product"].(map[string]any)["id"])
	}

	res = payload(exec(t, `mutation($input: CreateOrderInput!) {
  createOrder(input: $input) { order { id totalAmount products { name } } message }
}`, map[string]any{"input": map[string]any{"customerId": customerID, "productIds": productIDs}}), "createOrder")
	created := res["order"].(map[string]any)
	assert.InDelta(t, 1049.98, created["totalAmount"], 1e-9)
	assert.Len(t, created["products"], 2)

	reminders, err := client.RecentOrders(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []crmclient.OrderReminder{{OrderID: created["id"].(string), Email: "alice@example.com"}}, reminders)

	report, err := client.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Customers)
	assert.Equal(t, 1, report.Orders)
	assert.True(t, decimal.RequireFromString("1049.98").Equal(report.Revenue), report.Revenue.String())

	restock, err := client.UpdateLowStockProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 products restocked successfully", restock.Message)
	assert.Equal(t, []crmclient.RestockedProduct{{Name: "Mouse", Stock: 13}}, restock.Products)

	restock, err = client.UpdateLowStockProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No products needed restocking", restock.Message)
}
