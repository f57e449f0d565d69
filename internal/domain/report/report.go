// Package report aggregates CRM-wide totals for the periodic revenue report.
package report

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Summary is a point-in-time snapshot of CRM totals.
type Summary struct {
	Customers int
	Orders    int
	Revenue   decimal.Decimal
}

// CustomerCounter counts stored customers.
type CustomerCounter interface {
	Count(ctx context.Context) (int, error)
}

// OrderAggregator counts stored orders and sums their totals.
type OrderAggregator interface {
	Count(ctx context.Context) (int, error)
	SumTotal(ctx context.Context) (decimal.Decimal, error)
}

// Service builds summaries from the customer and order stores.
type Service struct {
	customers CustomerCounter
	orders    OrderAggregator
}

// NewService creates a report Service.
func NewService(customers CustomerCounter, orders OrderAggregator) *Service {
	return &Service{customers: customers, orders: orders}
}

// Summarize returns the customer count, order count and total revenue.
// Revenue is zero when there are no orders.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	var (
		sum Summary
		err error
	)
	if sum.Customers, err = s.customers.Count(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "count customers")
	}
	if sum.Orders, err = s.orders.Count(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "count orders")
	}
	if sum.Revenue, err = s.orders.SumTotal(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "sum revenue")
	}
	return sum, nil
}
