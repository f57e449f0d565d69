package customer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/crm/internal/domain/failure"
	"github.com/xenking/crm/internal/validation"
)

// --- Mock implementations ---

// mockCustomerRepo enforces email uniqueness the way the database does.
type mockCustomerRepo struct {
	mu        sync.Mutex
	customers []Customer
	createErr error
	creates   int
}

func (m *mockCustomerRepo) Create(_ context.Context, c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.customers {
		if existing.Email == c.Email {
			return ErrDuplicateEmail
		}
	}
	c.ID = fmt.Sprintf("c%d", len(m.customers)+1)
	m.customers = append(m.customers, *c)
	return nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCustomerRepo) GetByIDs(_ context.Context, _ []string) ([]Customer, error) {
	return nil, nil
}

func (m *mockCustomerRepo) List(_ context.Context) ([]Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Customer(nil), m.customers...), nil
}

func (m *mockCustomerRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers), nil
}

func (m *mockCustomerRepo) countEmail(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.customers {
		if c.Email == email {
			n++
		}
	}
	return n
}

func newService(repo *mockCustomerRepo) *Service {
	return NewService(repo, validation.New())
}

// --- Tests ---

func TestCreate(t *testing.T) {
	tests := []struct {
		name        string
		input       CreateInput
		wantCode    failure.Code
		wantCreates int
	}{
		{
			name:        "valid with international phone",
			input:       CreateInput{Name: "Alice", Email: "alice@example.com", Phone: "+1234567890"},
			wantCreates: 1,
		},
		{
			name:        "valid with local phone",
			input:       CreateInput{Name: "Bob", Email: "bob@example.com", Phone: "123-456-7890"},
			wantCreates: 1,
		},
		{
			name:        "valid without phone",
			input:       CreateInput{Name: "Carol", Email: "carol@example.com"},
			wantCreates: 1,
		},
		{
			name:     "invalid phone never reaches the store",
			input:    CreateInput{Name: "Dave", Email: "dave@example.com", Phone: "12345"},
			wantCode: failure.CodeInvalidPhone,
		},
		{
			name:     "phone with surrounding space",
			input:    CreateInput{Name: "Dana", Email: "dana@example.com", Phone: " 123-456-7890"},
			wantCode: failure.CodeInvalidPhone,
		},
		{
			name:     "missing email",
			input:    CreateInput{Name: "Eve"},
			wantCode: failure.CodeInvalidInput,
		},
		{
			name:     "blank name",
			input:    CreateInput{Name: "   ", Email: "frank@example.com"},
			wantCode: failure.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCustomerRepo{}
			svc := newService(repo)

			c, err := svc.Create(context.Background(), tt.input)
			assert.Equal(t, tt.wantCreates, repo.creates)

			if tt.wantCode != "" {
				fe, ok := failure.As(err)
				require.True(t, ok, "expected failure, got %v", err)
				assert.Equal(t, tt.wantCode, fe.Code)
				assert.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, c)
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, tt.input.Email, c.Email)
		})
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Alice", Email: "a@x.com"})
	require.NoError(t, err)

	c, err := svc.Create(ctx, CreateInput{Name: "Alice again", Email: "a@x.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Nil(t, c)
	assert.Equal(t, failure.Conflict, failure.KindOf(err))
	assert.Equal(t, "Email already exists.", failure.Message(err))
	assert.Equal(t, 1, repo.countEmail("a@x.com"))
}

func TestCreate_ConcurrentSameEmail(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := newService(repo)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateInput{
				Name:  fmt.Sprintf("racer %d", i),
				Email: "race@x.com",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, ErrDuplicateEmail) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, repo.countEmail("race@x.com"))
}

func TestCreate_PersistenceErrorPassesThrough(t *testing.T) {
	repo := &mockCustomerRepo{createErr: errors.New("connection reset by peer")}
	svc := newService(repo)

	c, err := svc.Create(context.Background(), CreateInput{Name: "Alice", Email: "alice@example.com"})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Equal(t, failure.Persistence, failure.KindOf(err))
	assert.Equal(t, "connection reset by peer", failure.Message(err))
}

func TestBulkCreate_IndependentCommit(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Existing", Email: "a@x.com"})
	require.NoError(t, err)

	res := svc.BulkCreate(ctx, []CreateInput{
		{Name: "First", Email: "a@x.com"},
		{Name: "Second", Email: "a@x.com"},
		{Name: "Third", Email: "b@x.com"},
	})

	require.Len(t, res.Customers, 1)
	assert.Equal(t, "b@x.com", res.Customers[0].Email)
	assert.Equal(t, []string{
		"a@x.com: Email already exists.",
		"a@x.com: Email already exists.",
	}, res.Errors)
	assert.Equal(t, "1 customers created, 2 failed", res.Message())
}

func TestBulkCreate_OrderAndLabels(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := newService(repo)

	res := svc.BulkCreate(context.Background(), []CreateInput{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "No Email"},
		{Name: "Bad Phone", Email: "bad@example.com", Phone: "abc-def-ghij"},
		{Name: "Bob", Email: "bob@example.com", Phone: "123-456-7890"},
	})

	require.Len(t, res.Customers, 2)
	assert.Equal(t, "alice@example.com", res.Customers[0].Email)
	assert.Equal(t, "bob@example.com", res.Customers[1].Email)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "No Email: Email is required.", res.Errors[0])
	assert.Equal(t, "bad@example.com: Phone must be in +1234567890 or 123-456-7890 format.", res.Errors[1])
}

func TestBulkCreate_Empty(t *testing.T) {
	svc := newService(&mockCustomerRepo{})

	res := svc.BulkCreate(context.Background(), nil)
	assert.Empty(t, res.Customers)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "0 customers created", res.Message())
}
