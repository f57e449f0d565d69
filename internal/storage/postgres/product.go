package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/crm/internal/domain/product"
)

const (
	productColumns = `id, name, price, stock, created_at`

	createProductSQL = `INSERT INTO products (id, name, price, stock)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY %s %s, id`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	// A single statement, so each row is read and incremented atomically and
	// concurrent orders never observe a half-applied restock.
	restockProductsSQL = `WITH updated AS (
			UPDATE products SET stock = stock + $2
			WHERE stock < $1
			RETURNING ` + productColumns + `
		)
		SELECT ` + productColumns + ` FROM updated ORDER BY name, id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p, assigning its ID and CreatedAt.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	id := uuid.New()
	err := r.pool.QueryRow(ctx, createProductSQL, id, p.Name, p.Price, p.Stock).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	p.ID = id.String()
	return nil
}

// List returns the catalog in the requested order.
func (r *ProductRepository) List(ctx context.Context, sort product.Sort) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(listProductsSQL, productSortColumn(sort.Field), direction(sort.Desc)))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	parsed := parseIDs(ids)
	if len(parsed) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, parsed)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) Restock(ctx context.Context, threshold, amount int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, restockProductsSQL, threshold, amount)
	if err != nil {
		return nil, fmt.Errorf("restocking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func productSortColumn(f product.SortField) string {
	switch f {
	case product.SortByID:
		return "id"
	case product.SortByPrice:
		return "price"
	case product.SortByStock:
		return "stock"
	case product.SortByCreatedAt:
		return "created_at"
	default:
		return "name"
	}
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		stock int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &stock, &p.CreatedAt)
	p.Stock = int(stock)
	return p, err
}
