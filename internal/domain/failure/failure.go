// Package failure defines the error taxonomy shared by the CRM domain
// services. Mutations recover these errors at the handler boundary and turn
// them into soft-failure payloads (null entity plus message).
package failure

import (
	"github.com/go-faster/errors"
)

// Kind classifies a domain failure.
type Kind string

const (
	// Validation means the input was rejected before touching the store.
	Validation Kind = "ValidationError"
	// NotFound means a referenced entity does not exist.
	NotFound Kind = "NotFoundError"
	// Conflict means a uniqueness constraint was violated.
	Conflict Kind = "ConflictError"
	// Persistence means the store failed for an unclassified reason.
	Persistence Kind = "PersistenceError"
)

// Code identifies the specific failure within its Kind.
type Code string

const (
	CodeInvalidPhone       Code = "InvalidPhone"
	CodeNotPositive        Code = "NotPositive"
	CodeNegative           Code = "Negative"
	CodeNoProductsSelected Code = "NoProductsSelected"
	CodeInvalidOrderBy     Code = "InvalidOrderBy"
	CodeInvalidInput       Code = "InvalidInput"
	CodeCustomerNotFound   Code = "CustomerNotFound"
	CodeProductsNotFound   Code = "ProductsNotFound"
	CodeDuplicateEmail     Code = "DuplicateEmail"
	CodeRestockInProgress  Code = "RestockInProgress"
	CodePersistence        Code = "Persistence"
)

// Error is a classified domain failure with a human-readable message.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches failures by code so that sentinel values compare equal to
// copies carrying a different message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New returns a failure of the given kind and code.
func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Invalid returns a Validation failure.
func Invalid(code Code, msg string) *Error {
	return New(Validation, code, msg)
}

// Missing returns a NotFound failure.
func Missing(code Code, msg string) *Error {
	return New(NotFound, code, msg)
}

// Conflicting returns a Conflict failure.
func Conflicting(code Code, msg string) *Error {
	return New(Conflict, code, msg)
}

// Store wraps an unclassified store error. The raw error text is passed
// through verbatim as the message.
func Store(err error) *Error {
	return &Error{Kind: Persistence, Code: CodePersistence, Message: err.Error(), Err: err}
}

// As extracts a *Error from err.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf reports the Kind of err, treating anything unclassified as a
// Persistence failure.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return Persistence
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := As(err); ok {
		return fe.Message
	}
	return err.Error()
}
