// Package handler serves the CRM GraphQL API.
package handler

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/go-faster/errors"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	gqlotel "github.com/graph-gophers/graphql-go/trace/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/domain/report"
)

//go:embed schema.graphql
var schemaSDL string

// CustomerService is the customer surface the resolvers depend on.
type CustomerService interface {
	Create(ctx context.Context, in customer.CreateInput) (*customer.Customer, error)
	BulkCreate(ctx context.Context, inputs []customer.CreateInput) customer.BulkResult
	List(ctx context.Context) ([]customer.Customer, error)
}

// ProductService is the product surface the resolvers depend on.
type ProductService interface {
	Create(ctx context.Context, in product.CreateInput) (*product.Product, error)
	List(ctx context.Context, orderBy string) ([]product.Product, error)
	RestockLowStock(ctx context.Context) (*product.RestockResult, error)
}

// OrderService is the order surface the resolvers depend on.
type OrderService interface {
	Create(ctx context.Context, in order.CreateInput) (*order.Order, error)
	List(ctx context.Context, orderBy string) ([]order.Order, error)
	Recent(ctx context.Context, lastDays int) ([]order.Order, error)
}

// ReportService produces CRM-wide totals.
type ReportService interface {
	Summarize(ctx context.Context) (report.Summary, error)
}

// Services groups the domain services behind the API.
type Services struct {
	Customers CustomerService
	Products  ProductService
	Orders    OrderService
	Reports   ReportService
}

// Handler executes GraphQL requests against the CRM schema.
type Handler struct {
	schema *graphql.Schema
	relay  *relay.Handler
}

// New parses the schema and binds it to the given services. Telemetry
// providers may be nil, in which case the global ones are used.
func New(svc Services, tp trace.TracerProvider, mp metric.MeterProvider) (*Handler, error) {
	res, err := newResolver(svc, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create resolver")
	}

	tracer := gqlotel.DefaultTracer()
	if tp != nil {
		tracer = &gqlotel.Tracer{Tracer: tp.Tracer("crm/graphql")}
	}

	schema, err := graphql.ParseSchema(schemaSDL, res,
		graphql.UseFieldResolvers(),
		graphql.Tracer(tracer),
		graphql.Logger(panicLogger{}),
		graphql.MaxDepth(10),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}

	return &Handler{
		schema: schema,
		relay:  &relay.Handler{Schema: schema},
	}, nil
}

// ServeHTTP handles a JSON-encoded GraphQL request body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.relay.ServeHTTP(w, r)
}

// Exec runs a single operation in-process.
func (h *Handler) Exec(ctx context.Context, query, operationName string, variables map[string]any) *graphql.Response {
	return h.schema.Exec(ctx, query, operationName, variables)
}
