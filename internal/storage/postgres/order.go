package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
)

const (
	orderColumns = `id, customer_id, total_amount, order_date, created_at`

	createOrderSQL = `INSERT INTO orders (id, customer_id, total_amount, order_date)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	createOrderProductsSQL = `INSERT INTO order_products (order_id, product_id)
		SELECT $1, unnest($2::uuid[])`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY %s %s, id`

	listOrdersSinceSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE order_date >= $1 ORDER BY order_date DESC, id`

	orderProductsSQL = `SELECT op.order_id, p.id, p.name, p.price, p.stock, p.created_at
		FROM order_products op JOIN products p ON p.id = op.product_id
		WHERE op.order_id = ANY($1)
		ORDER BY p.name, p.id`

	countOrdersSQL = `SELECT count(*) FROM orders`

	sumOrderTotalsSQL = `SELECT COALESCE(SUM(total_amount), 0) FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists o and its product associations in one transaction, so a
// failure leaves neither behind.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	id := uuid.New()
	productIDs := parseIDs(o.ProductIDs())

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, createOrderSQL,
			id, o.CustomerID, o.TotalAmount, o.OrderDate,
		).Scan(&o.CreatedAt); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		if _, err := tx.Exec(ctx, createOrderProductsSQL, id, productIDs); err != nil {
			return fmt.Errorf("inserting order products: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order for customer %q: %w", o.CustomerID, err)
	}
	o.ID = id.String()
	return nil
}

// List returns all orders in the requested order with customers and products
// loaded.
func (r *OrderRepository) List(ctx context.Context, sort order.Sort) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(listOrdersSQL, orderSortColumn(sort.Field), direction(sort.Desc)))
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return r.load(ctx, orders)
}

func (r *OrderRepository) ListSince(ctx context.Context, since time.Time) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSinceSQL, since)
	if err != nil {
		return nil, fmt.Errorf("listing orders since %s: %w", since.Format(time.RFC3339), err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders since %s: %w", since.Format(time.RFC3339), err)
	}
	return r.load(ctx, orders)
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return int(n), nil
}

func (r *OrderRepository) SumTotal(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, sumOrderTotalsSQL).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing order totals: %w", err)
	}
	return sum, nil
}

// load attaches customers and products to orders with one query each.
func (r *OrderRepository) load(ctx context.Context, orders []order.Order) ([]order.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(orders))
	customerIDs := make([]uuid.UUID, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, uuid.MustParse(o.ID))
		if _, ok := seen[o.CustomerID]; ok {
			continue
		}
		seen[o.CustomerID] = struct{}{}
		customerIDs = append(customerIDs, uuid.MustParse(o.CustomerID))
	}

	customers, err := customersByIDs(ctx, r.pool, customerIDs)
	if err != nil {
		return nil, err
	}
	byCustomer := make(map[string]customer.Customer, len(customers))
	for _, c := range customers {
		byCustomer[c.ID] = c
	}

	rows, err := r.pool.Query(ctx, orderProductsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order products: %w", err)
	}
	byOrder := make(map[string][]product.Product, len(orders))
	var (
		orderID string
		p       product.Product
		stock   int32
	)
	_, err = pgx.ForEachRow(rows, []any{&orderID, &p.ID, &p.Name, &p.Price, &stock, &p.CreatedAt}, func() error {
		p.Stock = int(stock)
		byOrder[orderID] = append(byOrder[orderID], p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading order products: %w", err)
	}

	for i := range orders {
		orders[i].Customer = byCustomer[orders[i].CustomerID]
		orders[i].Products = byOrder[orders[i].ID]
	}
	return orders, nil
}

func orderSortColumn(f order.SortField) string {
	switch f {
	case order.SortByID:
		return "id"
	case order.SortByTotalAmount:
		return "total_amount"
	case order.SortByCreatedAt:
		return "created_at"
	default:
		return "order_date"
	}
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.OrderDate, &o.CreatedAt)
	return o, err
}
