package erp

import (
	"errors"
	"fmt"
)


type ServiceError struct {
	Vendor string
	Op     string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s unavailable: %v", e.Vendor, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewServiceError(vendor, op string, err error) *ServiceError {
	return &ServiceError{Vendor: vendor, Op: op, Err: err}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

type ConflictError struct {
	Op       string
	Position int
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: position %d conflict: %s", e.Op, e.Position, e.Message)
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
