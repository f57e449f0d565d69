package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/domain/sorting"
)

// Order is a customer's purchase of one or more products. TotalAmount is
// fixed when the order is created and does not follow later price changes.
type Order struct {
	ID          string
	CustomerID  string
	TotalAmount decimal.Decimal
	OrderDate   time.Time
	CreatedAt   time.Time

	// Customer and Products are populated on read.
	Customer customer.Customer
	Products []product.Product
}

// ProductIDs returns the ids of the associated products.
func (o *Order) ProductIDs() []string {
	ids := make([]string, len(o.Products))
	for i, p := range o.Products {
		ids[i] = p.ID
	}
	return ids
}

// SortField enumerates the sortable order attributes.
type SortField string

const (
	SortByID          SortField = "id"
	SortByTotalAmount SortField = "totalAmount"
	SortByOrderDate   SortField = "orderDate"
	SortByCreatedAt   SortField = "createdAt"
)

// Sort is a validated order ordering.
type Sort = sorting.Sort[SortField]

var sortKeys = sorting.Keys(SortByID, SortByTotalAmount, SortByOrderDate, SortByCreatedAt)

// DefaultSort lists the newest orders first.
var DefaultSort = Sort{Field: SortByOrderDate, Desc: true}

// ParseSort validates a caller-supplied orderBy value.
func ParseSort(raw string) (Sort, error) {
	return sorting.Parse(raw, sortKeys, DefaultSort)
}

// Repository defines persistence operations for orders. Reads return orders
// with Customer and Products loaded.
type Repository interface {
	// Create stores o and its product associations atomically.
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context, sort Sort) ([]Order, error)
	// ListSince returns orders whose OrderDate is at or after since, newest first.
	ListSince(ctx context.Context, since time.Time) ([]Order, error)
	Count(ctx context.Context) (int, error)
	// SumTotal returns the sum of TotalAmount over all orders.
	SumTotal(ctx context.Context) (decimal.Decimal, error)
}
