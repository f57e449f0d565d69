// Package validation holds the pure input checks applied before any CRM
// entity is persisted.
package validation

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/failure"
)

var (
	internationalPhone = regexp.MustCompile(`^\+\d{10,15}$`)
	localPhone         = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
)

var (
	// ErrInvalidPhone is returned for a phone outside both accepted formats.
	ErrInvalidPhone = failure.Invalid(failure.CodeInvalidPhone,
		"Phone must be in +1234567890 or 123-456-7890 format.")
	// ErrPriceNotPositive is returned for a price of zero or less.
	ErrPriceNotPositive = failure.Invalid(failure.CodeNotPositive, "Price must be positive.")
	// ErrStockNegative is returned for a stock below zero.
	ErrStockNegative = failure.Invalid(failure.CodeNegative, "Stock cannot be negative.")
)

// ValidatePhone accepts "+" followed by 10-15 digits, or the NNN-NNN-NNNN
// form. The phone is optional, so an empty string is valid.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if internationalPhone.MatchString(phone) || localPhone.MatchString(phone) {
		return nil
	}
	return ErrInvalidPhone
}

// ValidatePrice rejects prices that are zero or negative.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrPriceNotPositive
	}
	return nil
}

// ValidateStock rejects negative stock.
func ValidateStock(stock int) error {
	if stock < 0 {
		return ErrStockNegative
	}
	return nil
}
