package validation

import (
	"fmt"

	"github.com/go-faster/errors"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/xenking/crm/internal/domain/failure"
)

// New returns a validator with the CRM-specific tags registered:
//
//	phone - optional phone number, see ValidatePhone
func New() *validatorv10.Validate {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("phone", func(fl validatorv10.FieldLevel) bool {
		return ValidatePhone(fl.Field().String()) == nil
	})
	return v
}

// Struct validates s and converts the first failing field into a
// Validation failure. Phone violations map to ErrInvalidPhone so callers
// see the same code whether the check ran here or in ValidatePhone.
func Struct(v *validatorv10.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return failure.Invalid(failure.CodeInvalidInput, err.Error())
	}

	fe := ve[0]
	switch fe.Tag() {
	case "phone":
		return ErrInvalidPhone
	case "required":
		return failure.Invalid(failure.CodeInvalidInput, fmt.Sprintf("%s is required.", fe.Field()))
	case "max":
		return failure.Invalid(failure.CodeInvalidInput,
			fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param()))
	default:
		return failure.Invalid(failure.CodeInvalidInput,
			fmt.Sprintf("%s failed the %q check.", fe.Field(), fe.Tag()))
	}
}
