package customer

import (
	"context"
	"time"

	"github.com/xenking/crm/internal/domain/failure"
)

var (
	// ErrDuplicateEmail is returned when another customer already owns the email.
	ErrDuplicateEmail = failure.Conflicting(failure.CodeDuplicateEmail, "Email already exists.")
	// ErrNotFound is returned when a requested customer does not exist.
	ErrNotFound = failure.Missing(failure.CodeCustomerNotFound, "Invalid customer ID.")
)

// Customer is a CRM contact. Customers are immutable once created.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// CreateInput holds the fields accepted by CreateCustomer.
type CreateInput struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,max=254"`
	Phone string `validate:"phone"`
}

// label identifies an input in bulk error reports: email first, then name.
func (in CreateInput) label() string {
	if in.Email != "" {
		return in.Email
	}
	return in.Name
}

// Repository defines persistence operations for customers.
type Repository interface {
	// Create inserts c and fills in the generated fields. It returns
	// ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByIDs(ctx context.Context, ids []string) ([]Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Count(ctx context.Context) (int, error)
}
