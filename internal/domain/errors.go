package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "invalid_argument"
	CodeNotFound        ErrorCode = "not_found"
	CodeStore           ErrorCode = "store_error"
	CodeInternal        ErrorCode = "internal"
)

type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func InvalidArgument(message string) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// StoreError reports any failure of the record store: connection loss, query
// errors, constraint violations. It is the only backend failure kind callers
// distinguish.
func StoreError(message string, cause error) *AppError {
	return &AppError{Code: CodeStore, Message: message, Cause: cause}
}

func Internal(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Cause: cause}
}

func AsAppError(err error) (*AppError, bool) {
	var typed *AppError
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	typed, ok := AsAppError(err)
	return ok && typed.Code == CodeNotFound
}

func IsInvalidArgument(err error) bool {
	typed, ok := AsAppError(err)
	return ok && typed.Code == CodeInvalidArgument
}

func IsStoreError(err error) bool {
	typed, ok := AsAppError(err)
	return ok && typed.Code == CodeStore
}
