package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/domain/sorting"
)

const (
	// LowStockThreshold is the stock level below which a product is restocked.
	LowStockThreshold = 10
	// RestockAmount is added to the stock of every low-stock product.
	RestockAmount = 10
	// PriceScale is the number of decimal places a stored price keeps.
	PriceScale = 2
)

// ErrRestockInProgress is returned when a restock pass is already running.
var ErrRestockInProgress = failure.Conflicting(failure.CodeRestockInProgress, "Restock already in progress.")

// Product represents a catalog item available for purchase.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
}

// CreateInput holds the fields accepted by CreateProduct.
type CreateInput struct {
	Name  string `validate:"required,max=255"`
	Price decimal.Decimal
	Stock int
}

// SortField enumerates the sortable product attributes.
type SortField string

const (
	SortByID        SortField = "id"
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByStock     SortField = "stock"
	SortByCreatedAt SortField = "createdAt"
)

// Sort is a validated product ordering.
type Sort = sorting.Sort[SortField]

var sortKeys = sorting.Keys(SortByID, SortByName, SortByPrice, SortByStock, SortByCreatedAt)

// DefaultSort orders products by name.
var DefaultSort = Sort{Field: SortByName}

// ParseSort validates a caller-supplied orderBy value.
func ParseSort(raw string) (Sort, error) {
	return sorting.Parse(raw, sortKeys, DefaultSort)
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context, sort Sort) ([]Product, error)
	// GetByIDs returns the products matching ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// Restock adds amount to the stock of every product whose stock is below
	// threshold and returns the updated products ordered by name.
	Restock(ctx context.Context, threshold, amount int) ([]Product, error)
}
