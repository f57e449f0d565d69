package product

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/validation"
)

// RestockResult holds the products touched by a restock pass.
type RestockResult struct {
	Products []Product
}

// Message reports how many products were restocked.
func (r RestockResult) Message() string {
	if len(r.Products) == 0 {
		return "No products needed restocking"
	}
	return fmt.Sprintf("%d products restocked successfully", len(r.Products))
}

// Service encapsulates product catalog rules.
type Service struct {
	products Repository
	validate *validatorv10.Validate

	restocking atomic.Bool
}

// NewService creates a product Service.
func NewService(products Repository, validate *validatorv10.Validate) *Service {
	return &Service{
		products: products,
		validate: validate,
	}
}

// Create validates in and persists a new product. The price is rounded to
// PriceScale places first, so the returned product matches the stored one;
// it must then be positive and stock non-negative. Nothing is written
// otherwise.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Price = in.Price.Round(PriceScale)
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validation.ValidateStock(in.Stock); err != nil {
		return nil, err
	}

	p := &Product{
		Name:  in.Name,
		Price: in.Price,
		Stock: in.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, failure.Store(err)
	}
	return p, nil
}

// List returns the catalog in the requested order. orderBy must name a
// sortable field, optionally prefixed with "-".
func (s *Service) List(ctx context.Context, orderBy string) ([]Product, error) {
	sort, err := ParseSort(orderBy)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx, sort)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// RestockLowStock bumps every product below LowStockThreshold by
// RestockAmount. Only one pass runs at a time per Service; an overlapping
// call fails with ErrRestockInProgress.
func (s *Service) RestockLowStock(ctx context.Context) (*RestockResult, error) {
	if !s.restocking.CompareAndSwap(false, true) {
		return nil, ErrRestockInProgress
	}
	defer s.restocking.Store(false)

	products, err := s.products.Restock(ctx, LowStockThreshold, RestockAmount)
	if err != nil {
		return nil, failure.Store(err)
	}
	return &RestockResult{Products: products}, nil
}
