package handler

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
)

const (
	msgCustomerCreated = "Customer created successfully."
	msgProductCreated  = "Product created successfully."
	msgOrderCreated    = "Order created successfully."
	helloMessage       = "Hello, GraphQL!"
)

// resolver is the root resolver for both Query and Mutation.
type resolver struct {
	svc       Services
	mutations metric.Int64Counter
}

func newResolver(svc Services, mp metric.MeterProvider) (*resolver, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	mutations, err := mp.Meter("crm/graphql").Int64Counter("crm.graphql.mutations",
		metric.WithDescription("GraphQL mutations by name and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutations counter")
	}
	return &resolver{svc: svc, mutations: mutations}, nil
}

// observe records the mutation outcome and logs soft failures. It returns the
// user-facing message for err.
func (r *resolver) observe(ctx context.Context, mutation string, err error) string {
	outcome := "ok"
	if err != nil {
		kind := failure.KindOf(err)
		outcome = string(kind)

		lg := zctx.From(ctx).With(zap.String("mutation", mutation), zap.Error(err))
		if kind == failure.Persistence {
			lg.Error("Mutation failed")
		} else {
			lg.Info("Mutation rejected", zap.String("kind", string(kind)))
		}
	}
	r.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mutation", mutation),
		attribute.String("outcome", outcome),
	))
	return failure.Message(err)
}

// Queries.

func (r *resolver) Hello() string {
	return helloMessage
}

func (r *resolver) AllCustomers(ctx context.Context) ([]*customerResolver, error) {
	cs, err := r.svc.Customers.List(ctx)
	if err != nil {
		return nil, err
	}
	return customerResolvers(cs), nil
}

type orderByArgs struct {
	OrderBy *string
}

func (a orderByArgs) value() string {
	if a.OrderBy == nil {
		return ""
	}
	return *a.OrderBy
}

func (r *resolver) AllProducts(ctx context.Context, args orderByArgs) ([]*productResolver, error) {
	ps, err := r.svc.Products.List(ctx, args.value())
	if err != nil {
		return nil, asQueryError(err)
	}
	return productResolvers(ps), nil
}

func (r *resolver) AllOrders(ctx context.Context, args orderByArgs) ([]*orderResolver, error) {
	orders, err := r.svc.Orders.List(ctx, args.value())
	if err != nil {
		return nil, asQueryError(err)
	}
	return orderResolvers(orders), nil
}

func (r *resolver) Orders(ctx context.Context, args struct{ LastDays int32 }) ([]*orderResolver, error) {
	orders, err := r.svc.Orders.Recent(ctx, int(args.LastDays))
	if err != nil {
		return nil, asQueryError(err)
	}
	return orderResolvers(orders), nil
}

func (r *resolver) CrmReport(ctx context.Context) (*reportResolver, error) {
	s, err := r.svc.Reports.Summarize(ctx)
	if err != nil {
		return nil, err
	}
	return &reportResolver{s: s}, nil
}

// Mutations. Domain failures never surface as GraphQL errors.

func (r *resolver) CreateCustomer(ctx context.Context, args struct{ Input customerInput }) *createCustomerPayload {
	c, err := r.svc.Customers.Create(ctx, args.Input.toDomain())
	if err != nil {
		return &createCustomerPayload{Message: r.observe(ctx, "createCustomer", err)}
	}
	r.observe(ctx, "createCustomer", nil)
	return &createCustomerPayload{Customer: &customerResolver{c: *c}, Message: msgCustomerCreated}
}

func (r *resolver) BulkCreateCustomers(ctx context.Context, args struct{ Input []customerInput }) *bulkCreateCustomersPayload {
	inputs := make([]customer.CreateInput, len(args.Input))
	for i, in := range args.Input {
		inputs[i] = in.toDomain()
	}

	res := r.svc.Customers.BulkCreate(ctx, inputs)
	zctx.From(ctx).Info("Bulk customer import",
		zap.Int("created", len(res.Customers)),
		zap.Int("failed", len(res.Errors)),
	)
	r.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mutation", "bulkCreateCustomers"),
		attribute.String("outcome", "ok"),
	))

	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	return &bulkCreateCustomersPayload{
		Customers: customerResolvers(res.Customers),
		Errors:    errs,
		Message:   res.Message(),
	}
}

func (r *resolver) CreateProduct(ctx context.Context, args struct{ Input productInput }) *createProductPayload {
	in := product.CreateInput{
		Name:  args.Input.Name,
		Price: decimal.NewFromFloat(args.Input.Price),
	}
	if args.Input.Stock != nil {
		in.Stock = int(*args.Input.Stock)
	}

	p, err := r.svc.Products.Create(ctx, in)
	if err != nil {
		return &createProductPayload{Message: r.observe(ctx, "createProduct", err)}
	}
	r.observe(ctx, "createProduct", nil)
	return &createProductPayload{Product: &productResolver{p: *p}, Message: msgProductCreated}
}

func (r *resolver) CreateOrder(ctx context.Context, args struct{ Input orderInput }) *createOrderPayload {
	in := order.CreateInput{
		CustomerID: string(args.Input.CustomerID),
		ProductIDs: make([]string, len(args.Input.ProductIDs)),
	}
	for i, id := range args.Input.ProductIDs {
		in.ProductIDs[i] = string(id)
	}
	if d := args.Input.OrderDate; d != nil {
		in.OrderDate = &d.Time
	}

	o, err := r.svc.Orders.Create(ctx, in)
	if err != nil {
		return &createOrderPayload{Message: r.observe(ctx, "createOrder", err)}
	}
	r.observe(ctx, "createOrder", nil)
	return &createOrderPayload{Order: &orderResolver{o: *o}, Message: msgOrderCreated}
}

func (r *resolver) UpdateLowStockProducts(ctx context.Context) *updateLowStockProductsPayload {
	res, err := r.svc.Products.RestockLowStock(ctx)
	if err != nil {
		return &updateLowStockProductsPayload{
			UpdatedProducts: []*productResolver{},
			Message:         r.observe(ctx, "updateLowStockProducts", err),
		}
	}
	r.observe(ctx, "updateLowStockProducts", nil)
	return &updateLowStockProductsPayload{
		UpdatedProducts: productResolvers(res.Products),
		Message:         res.Message(),
	}
}
