package handler

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/domain/report"
)

type customerResolver struct {
	c customer.Customer
}

func (r *customerResolver) ID() graphql.ID          { return graphql.ID(r.c.ID) }
func (r *customerResolver) Name() string            { return r.c.Name }
func (r *customerResolver) Email() string           { return r.c.Email }
func (r *customerResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.c.CreatedAt} }

func (r *customerResolver) Phone() *string {
	if r.c.Phone == "" {
		return nil
	}
	return &r.c.Phone
}

func customerResolvers(cs []customer.Customer) []*customerResolver {
	out := make([]*customerResolver, len(cs))
	for i := range cs {
		out[i] = &customerResolver{c: cs[i]}
	}
	return out
}

// Money is exact in storage and rendered as Float on the wire.
type productResolver struct {
	p product.Product
}

func (r *productResolver) ID() graphql.ID          { return graphql.ID(r.p.ID) }
func (r *productResolver) Name() string            { return r.p.Name }
func (r *productResolver) Price() float64          { return r.p.Price.InexactFloat64() }
func (r *productResolver) Stock() int32            { return int32(r.p.Stock) }
func (r *productResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.p.CreatedAt} }

func productResolvers(ps []product.Product) []*productResolver {
	out := make([]*productResolver, len(ps))
	for i := range ps {
		out[i] = &productResolver{p: ps[i]}
	}
	return out
}

type orderResolver struct {
	o order.Order
}

func (r *orderResolver) ID() graphql.ID               { return graphql.ID(r.o.ID) }
func (r *orderResolver) Customer() *customerResolver  { return &customerResolver{c: r.o.Customer} }
func (r *orderResolver) Products() []*productResolver { return productResolvers(r.o.Products) }
func (r *orderResolver) TotalAmount() float64         { return r.o.TotalAmount.InexactFloat64() }
func (r *orderResolver) OrderDate() graphql.Time      { return graphql.Time{Time: r.o.OrderDate} }
func (r *orderResolver) CreatedAt() graphql.Time      { return graphql.Time{Time: r.o.CreatedAt} }

func orderResolvers(orders []order.Order) []*orderResolver {
	out := make([]*orderResolver, len(orders))
	for i := range orders {
		out[i] = &orderResolver{o: orders[i]}
	}
	return out
}

type reportResolver struct {
	s report.Summary
}

func (r *reportResolver) Customers() int32 { return int32(r.s.Customers) }
func (r *reportResolver) Orders() int32    { return int32(r.s.Orders) }
func (r *reportResolver) Revenue() float64 { return r.s.Revenue.InexactFloat64() }

// Mutation payloads. A nil entity plus a message is a soft failure.

type createCustomerPayload struct {
	Customer *customerResolver
	Message  string
}

type bulkCreateCustomersPayload struct {
	Customers []*customerResolver
	Errors    []string
	Message   string
}

type createProductPayload struct {
	Product *productResolver
	Message string
}

type createOrderPayload struct {
	Order   *orderResolver
	Message string
}

type updateLowStockProductsPayload struct {
	UpdatedProducts []*productResolver
	Message         string
}

// Inputs.

type customerInput struct {
	Name  string
	Email string
	Phone *string
}

func (in customerInput) toDomain() customer.CreateInput {
	out := customer.CreateInput{Name: in.Name, Email: in.Email}
	if in.Phone != nil {
		out.Phone = *in.Phone
	}
	return out
}

type productInput struct {
	Name  string
	Price float64
	Stock *int32
}

type orderInput struct {
	CustomerID graphql.ID
	ProductIDs []graphql.ID
	OrderDate  *graphql.Time
}
