package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrNoProductsSelected = failure.Invalid(failure.CodeNoProductsSelected, "At least one product must be selected.")
	ErrProductsNotFound   = failure.Missing(failure.CodeProductsNotFound, "One or more product IDs are invalid.")
	ErrInvalidWindow      = failure.Invalid(failure.CodeInvalidInput, "lastDays must be greater than 0.")
)

// CustomerLookup resolves the customer an order belongs to.
type CustomerLookup interface {
	GetByID(ctx context.Context, id string) (*customer.Customer, error)
}

// ProductLookup batch-fetches the products an order references.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// CreateInput holds the input for CreateOrder.
type CreateInput struct {
	CustomerID string
	ProductIDs []string
	// OrderDate defaults to the creation time when nil.
	OrderDate *time.Time
}

// Service encapsulates order placement rules.
type Service struct {
	customers CustomerLookup
	products  ProductLookup
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service.
func NewService(customers CustomerLookup, products ProductLookup, orders Repository) *Service {
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		now:       time.Now,
	}
}

// Create checks the customer, checks every product, totals the product
// prices and persists the order. Each check short-circuits, and nothing is
// written unless all of them pass.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	c, err := s.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		return nil, failure.Store(err)
	}

	if len(in.ProductIDs) == 0 {
		return nil, ErrNoProductsSelected
	}

	ids := dedupe(in.ProductIDs)
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, failure.Store(err)
	}
	if len(fetched) != len(ids) {
		return nil, ErrProductsNotFound
	}

	total := decimal.Zero
	for _, p := range fetched {
		total = total.Add(p.Price)
	}

	now := s.now()
	o := &Order{
		CustomerID:  c.ID,
		TotalAmount: total,
		OrderDate:   now,
		Customer:    *c,
		Products:    fetched,
	}
	if in.OrderDate != nil {
		o.OrderDate = *in.OrderDate
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, failure.Store(err)
	}
	return o, nil
}

// List returns all orders with their products, in the requested order.
func (s *Service) List(ctx context.Context, orderBy string) ([]Order, error) {
	sort, err := ParseSort(orderBy)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, sort)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Recent returns orders placed within the trailing lastDays days.
func (s *Service) Recent(ctx context.Context, lastDays int) ([]Order, error) {
	if lastDays <= 0 {
		return nil, ErrInvalidWindow
	}
	since := s.now().AddDate(0, 0, -lastDays)
	orders, err := s.orders.ListSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "list recent orders")
	}
	return orders, nil
}

// dedupe drops repeated ids, keeping first occurrences in order. UUIDs are
// compared in canonical form, so different spellings of one id collapse.
// Anything that does not parse is kept verbatim.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			id = u.String()
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
