package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record matches the requested key.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when an insert violates email uniqueness.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrInvalidCriteria is returned for lookups on an unknown column.
	ErrInvalidCriteria = errors.New("invalid lookup criteria")
	// ErrEmptyUpdate is returned by UpdateUser when the update changes no column.
	ErrEmptyUpdate = errors.New("empty user update")
)

// StoreError wraps an underlying persistence failure. The cause is kept for
// errors.Is / errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with the failing operation name. A nil err stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
