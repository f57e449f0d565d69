package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/validation"
)

// BulkResult holds the outcome of BulkCreate. Customers and Errors each
// follow input order.
type BulkResult struct {
	Customers []Customer
	Errors    []string
}

// Message summarises the batch outcome.
func (r BulkResult) Message() string {
	msg := fmt.Sprintf("%d customers created", len(r.Customers))
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d failed", len(r.Errors))
	}
	return msg
}

// Service encapsulates customer creation rules.
type Service struct {
	customers Repository
	validate  *validatorv10.Validate
}

// NewService creates a customer Service.
func NewService(customers Repository, validate *validatorv10.Validate) *Service {
	return &Service{
		customers: customers,
		validate:  validate,
	}
}

// Create validates in and persists a new customer. Failures are returned as
// *failure.Error: validation problems before any store access, a Conflict
// for a taken email, or a Persistence failure carrying the store's message.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	// The phone tag runs validation.ValidatePhone on the phone as given.
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	c := &Customer{
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, failure.Store(err)
	}
	return c, nil
}

// BulkCreate creates each input independently, in order. Every item is
// committed on its own, so a failing item never undoes or blocks the
// others; concurrent readers may observe a partially populated batch.
func (s *Service) BulkCreate(ctx context.Context, inputs []CreateInput) BulkResult {
	var res BulkResult
	for _, in := range inputs {
		c, err := s.Create(ctx, in)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", in.label(), failure.Message(err)))
			continue
		}
		res.Customers = append(res.Customers, *c)
	}
	return res
}

// List returns every customer in creation order.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	return customers, nil
}
