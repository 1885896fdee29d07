package service

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_FAILED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError is the only error type services surface to handlers on
// purpose; anything else is treated as internal.
type DomainError struct {
	Code    ErrorCode
	Message string
	Details []FieldError
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NotFound(what string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: msg}
}

func Unauthorized(msg string) *DomainError {
	return &DomainError{Code: CodeUnauthorized, Message: msg}
}

func Conflict(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg}
}

func InvalidTransition(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidTransition, Message: msg}
}

func RateLimited(msg string) *DomainError {
	return &DomainError{Code: CodeRateLimited, Message: msg}
}

func Invalid(details ...FieldError) *DomainError {
	return &DomainError{Code: CodeValidation, Message: "validation failed", Details: details}
}

// AsDomainError unwraps err into a DomainError if it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}
