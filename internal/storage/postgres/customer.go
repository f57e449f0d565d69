package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/crm/internal/domain/customer"
)

const (
	customerColumns = `id, name, email, phone, created_at`

	createCustomerSQL = `INSERT INTO customers (id, name, email, phone)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	getCustomerByIDSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	getCustomersByIDsSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = ANY($1)`

	listCustomersSQL = `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at, id`

	countCustomersSQL = `SELECT count(*) FROM customers`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create inserts c, assigning its ID and CreatedAt. The unique index on email
// decides races between concurrent inserts of the same address.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	id := uuid.New()
	var phone *string
	if c.Phone != "" {
		phone = &c.Phone
	}

	err := r.pool.QueryRow(ctx, createCustomerSQL, id, c.Name, c.Email, phone).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return customer.ErrDuplicateEmail
		}
		return fmt.Errorf("creating customer %q: %w", c.Email, err)
	}
	c.ID = id.String()
	return nil
}

// GetByID returns customer.ErrNotFound for unknown or malformed ids.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, customer.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, u)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// GetByIDs returns the customers matching ids, skipping unknown ones.
func (r *CustomerRepository) GetByIDs(ctx context.Context, ids []string) ([]customer.Customer, error) {
	return customersByIDs(ctx, r.pool, parseIDs(ids))
}

// List returns every customer in creation order.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countCustomersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting customers: %w", err)
	}
	return int(n), nil
}

func customersByIDs(ctx context.Context, q querier, ids []uuid.UUID) ([]customer.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, getCustomersByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting customers by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c     customer.Customer
		phone *string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.CreatedAt)
	if phone != nil {
		c.Phone = *phone
	}
	return c, err
}
