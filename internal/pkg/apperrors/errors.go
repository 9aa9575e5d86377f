package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict reports a stale write: the record changed between read and save.
	ErrConflict = errors.New("resource conflict")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")
)

// Codes returned to API clients alongside the message.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeDatabase      = "DB_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// StaleVersionError is returned by a save whose expected version no longer
// matches the stored record. Actual is 0 when the store cannot report it.
type StaleVersionError struct {
	Resource string
	ID       string
	Expected int64
	Actual   int64
}

func (e *StaleVersionError) Error() string {
	if e.Actual > 0 {
		return fmt.Sprintf("%s %s is at version %d, not %d", e.Resource, e.ID, e.Actual, e.Expected)
	}
	return fmt.Sprintf("%s %s changed since version %d", e.Resource, e.ID, e.Expected)
}

func (e *StaleVersionError) Unwrap() error {
	return ErrConflict
}

func NewStaleVersionError(resource, id string, expected, actual int64) error {
	return &StaleVersionError{Resource: resource, ID: id, Expected: expected, Actual: actual}
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    CodeDatabase,
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// IsStoreFailure reports whether err belongs to the store failure class:
// connectivity, timeouts and lost optimistic-concurrency races.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrDatabase) || errors.Is(err, ErrConflict)
}

// Code classifies err for API clients. Store and internal failures collapse
// into CodeInternal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidArgument):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
