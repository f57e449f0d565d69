package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/domain/product"
)

// --- Mock implementations ---

type mockCustomerLookup struct {
	byID map[string]*customer.Customer
	err  error
}

func (m *mockCustomerLookup) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

type mockProductLookup struct {
	byID    map[string]*product.Product
	lastIDs []string
	calls   int
}

func (m *mockProductLookup) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.calls++
	m.lastIDs = ids
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	created   []Order
	err       error
	since     time.Time
	recent    []Order
	lastSort  Sort
	listCalls int
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	o.ID = "o1"
	m.created = append(m.created, *o)
	return nil
}

func (m *mockOrderRepo) List(_ context.Context, sort Sort) ([]Order, error) {
	m.listCalls++
	m.lastSort = sort
	return m.created, nil
}

func (m *mockOrderRepo) ListSince(_ context.Context, since time.Time) ([]Order, error) {
	m.since = since
	return m.recent, nil
}

func (m *mockOrderRepo) Count(_ context.Context) (int, error) {
	return len(m.created), nil
}

func (m *mockOrderRepo) SumTotal(_ context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range m.created {
		sum = sum.Add(o.TotalAmount)
	}
	return sum, nil
}

// --- Helpers ---

var alice = &customer.Customer{ID: "c1", Name: "Alice", Email: "alice@example.com"}

func newProductLookup(products ...product.Product) *mockProductLookup {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductLookup{byID: byID}
}

func newFixture(products ...product.Product) (*Service, *mockProductLookup, *mockOrderRepo) {
	pl := newProductLookup(products...)
	orders := &mockOrderRepo{}
	svc := NewService(&mockCustomerLookup{byID: map[string]*customer.Customer{"c1": alice}}, pl, orders)
	return svc, pl, orders
}

func laptop() product.Product {
	return product.Product{ID: "p1", Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 10}
}

func mouse() product.Product {
	return product.Product{ID: "p2", Name: "Mouse", Price: decimal.RequireFromString("49.99"), Stock: 50}
}

// --- Tests ---

func TestCreate_CustomerNotFound(t *testing.T) {
	svc, pl, orders := newFixture(laptop())

	o, err := svc.Create(context.Background(), CreateInput{CustomerID: "missing", ProductIDs: []string{"p1"}})
	require.ErrorIs(t, err, customer.ErrNotFound)
	assert.Nil(t, o)
	assert.Equal(t, failure.NotFound, failure.KindOf(err))
	assert.Equal(t, "Invalid customer ID.", failure.Message(err))
	assert.Zero(t, pl.calls, "products must not be fetched for an unknown customer")
	assert.Empty(t, orders.created)
}

func TestCreate_CustomerLookupError(t *testing.T) {
	svc := NewService(&mockCustomerLookup{err: errors.New("too many connections")}, newProductLookup(), &mockOrderRepo{})

	_, err := svc.Create(context.Background(), CreateInput{CustomerID: "c1", ProductIDs: []string{"p1"}})
	require.Error(t, err)
	assert.Equal(t, failure.Persistence, failure.KindOf(err))
	assert.Equal(t, "too many connections", failure.Message(err))
}

func TestCreate_NoProductsSelected(t *testing.T) {
	svc, pl, orders := newFixture(laptop())

	o, err := svc.Create(context.Background(), CreateInput{CustomerID: "c1"})
	require.ErrorIs(t, err, ErrNoProductsSelected)
	assert.Nil(t, o)
	assert.Zero(t, pl.calls)
	assert.Empty(t, orders.created)
}

func TestCreate_ProductsNotFound(t *testing.T) {
	svc, _, orders := newFixture(laptop(), mouse())

	o, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "c1",
		ProductIDs: []string{"p1", "nope", "p2"},
	})
	require.ErrorIs(t, err, ErrProductsNotFound)
	assert.Nil(t, o)
	assert.Empty(t, orders.created, "no partial order may be created")
}

func TestCreate_TotalIsExactSum(t *testing.T) {
	svc, _, orders := newFixture(laptop(), mouse())

	o, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "c1",
		ProductIDs: []string{"p1", "p2"},
	})
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "o1", o.ID)
	assert.True(t, decimal.RequireFromString("1049.98").Equal(o.TotalAmount), "got %s", o.TotalAmount)
	assert.Equal(t, []string{"p1", "p2"}, o.ProductIDs())
	assert.Equal(t, "c1", o.CustomerID)
	require.Len(t, orders.created, 1)
}

func TestCreate_TotalNotRecomputedOnPriceChange(t *testing.T) {
	svc, pl, orders := newFixture(laptop())

	o, err := svc.Create(context.Background(), CreateInput{CustomerID: "c1", ProductIDs: []string{"p1"}})
	require.NoError(t, err)

	pl.byID["p1"].Price = decimal.RequireFromString("1.00")

	assert.True(t, decimal.RequireFromString("999.99").Equal(o.TotalAmount))
	assert.True(t, decimal.RequireFromString("999.99").Equal(orders.created[0].TotalAmount))
}

func TestCreate_DuplicateIDsCollapse(t *testing.T) {
	svc, pl, _ := newFixture(laptop(), mouse())

	o, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "c1",
		ProductIDs: []string{"p2", "p1", "p2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, pl.lastIDs)
	assert.True(t, decimal.RequireFromString("1049.98").Equal(o.TotalAmount))
}

func TestCreate_UUIDSpellingsCollapse(t *testing.T) {
	const id = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	cable := product.Product{ID: id, Name: "Cable", Price: decimal.RequireFromString("9.99")}
	svc, pl, orders := newFixture(cable)

	o, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "c1",
		ProductIDs: []string{
			strings.ToUpper(id),
			"{" + id + "}",
			"urn:uuid:" + id,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, pl.lastIDs)
	assert.True(t, decimal.RequireFromString("9.99").Equal(o.TotalAmount))
	assert.Len(t, orders.created, 1)
}

func TestCreate_OrderDate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to now", func(t *testing.T) {
		svc, _, _ := newFixture(laptop())
		svc.now = func() time.Time { return fixedNow }

		o, err := svc.Create(context.Background(), CreateInput{CustomerID: "c1", ProductIDs: []string{"p1"}})
		require.NoError(t, err)
		assert.Equal(t, fixedNow, o.OrderDate)
	})

	t.Run("explicit date is kept", func(t *testing.T) {
		svc, _, _ := newFixture(laptop())
		explicit := fixedNow.Add(-48 * time.Hour)

		o, err := svc.Create(context.Background(), CreateInput{
			CustomerID: "c1",
			ProductIDs: []string{"p1"},
			OrderDate:  &explicit,
		})
		require.NoError(t, err)
		assert.Equal(t, explicit, o.OrderDate)
	})
}

func TestCreate_OrderCreateError(t *testing.T) {
	svc := NewService(
		&mockCustomerLookup{byID: map[string]*customer.Customer{"c1": alice}},
		newProductLookup(laptop()),
		&mockOrderRepo{err: errors.New("db write failed")},
	)

	o, err := svc.Create(context.Background(), CreateInput{CustomerID: "c1", ProductIDs: []string{"p1"}})
	require.Error(t, err)
	assert.Nil(t, o)
	assert.Equal(t, "db write failed", failure.Message(err))
}

func TestList_InvalidOrderBy(t *testing.T) {
	svc, _, orders := newFixture()

	_, err := svc.List(context.Background(), "customer_id)--")
	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeInvalidOrderBy, fe.Code)
	assert.Zero(t, orders.listCalls)

	_, err = svc.List(context.Background(), "total_amount")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: SortByTotalAmount}, orders.lastSort)
}

func TestRecent(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _, orders := newFixture()
	svc.now = func() time.Time { return fixedNow }

	_, err := svc.Recent(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), orders.since)

	_, err = svc.Recent(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidWindow)
}
