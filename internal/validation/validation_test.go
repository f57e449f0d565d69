package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/crm/internal/domain/failure"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{phone: "", valid: true},
		{phone: "+1234567890", valid: true},
		{phone: "+123456789012345", valid: true},
		{phone: "123-456-7890", valid: true},
		{phone: "12345", valid: false},
		{phone: "abc-def-ghij", valid: false},
		{phone: "+123456789", valid: false},
		{phone: "+1234567890123456", valid: false},
		{phone: "1234567890", valid: false},
		{phone: "123-4567-890", valid: false},
		{phone: " 123-456-7890", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPhone)
			assert.Equal(t, failure.Validation, failure.KindOf(err))
		})
	}
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(decimal.RequireFromString("0.01")))
	assert.ErrorIs(t, ValidatePrice(decimal.Zero), ErrPriceNotPositive)
	assert.ErrorIs(t, ValidatePrice(decimal.NewFromInt(-5)), ErrPriceNotPositive)
}

func TestValidateStock(t *testing.T) {
	assert.NoError(t, ValidateStock(0))
	assert.NoError(t, ValidateStock(42))
	assert.ErrorIs(t, ValidateStock(-1), ErrStockNegative)
}

type customerInput struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,max=254"`
	Phone string `validate:"phone"`
}

func TestStruct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Struct(v, customerInput{Name: "Alice", Email: "alice@example.com", Phone: "+1234567890"}))
	})

	t.Run("missing name", func(t *testing.T) {
		err := Struct(v, customerInput{Email: "alice@example.com"})
		fe, ok := failure.As(err)
		require.True(t, ok)
		assert.Equal(t, failure.CodeInvalidInput, fe.Code)
		assert.Equal(t, "Name is required.", fe.Message)
	})

	t.Run("bad phone maps to InvalidPhone", func(t *testing.T) {
		err := Struct(v, customerInput{Name: "Bob", Email: "bob@example.com", Phone: "12345"})
		require.ErrorIs(t, err, ErrInvalidPhone)
	})
}
