package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid        ErrorCode = "invalid"
	ErrorInvalidRange   ErrorCode = "invalid_range"
	ErrorConvergence    ErrorCode = "convergence_failure"
	ErrorMismatchedKeys ErrorCode = "mismatched_keys"
	ErrorDataLoad       ErrorCode = "data_load_failure"
	ErrorNotFound       ErrorCode = "not_found"
	ErrorUnauthorized   ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error { return &ServiceError{Code: ErrorInvalid, Message: msg} }

func NewInvalidRangeError(msg string) error {
	return &ServiceError{Code: ErrorInvalidRange, Message: msg}
}

func NewConvergenceError(msg string) error {
	return &ServiceError{Code: ErrorConvergence, Message: msg}
}

func NewMismatchedKeysError(msg string) error {
	return &ServiceError{Code: ErrorMismatchedKeys, Message: msg}
}

func NewDataLoadError(msg string) error { return &ServiceError{Code: ErrorDataLoad, Message: msg} }

func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
