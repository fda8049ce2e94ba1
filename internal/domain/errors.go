package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable kind carried by every business error.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	ErrCodeDuplicateReview   ErrorCode = "DUPLICATE_REVIEW"
	ErrCodeTransient         ErrorCode = "TRANSIENT"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf builds a domain error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound         = NewError(ErrCodeNotFound, "user not found")
	ErrSellerNotFound       = NewError(ErrCodeNotFound, "seller not found")
	ErrShopNotFound         = NewError(ErrCodeNotFound, "shop not found")
	ErrProductNotFound      = NewError(ErrCodeNotFound, "product not found")
	ErrOrderNotFound        = NewError(ErrCodeNotFound, "order not found")
	ErrReviewNotFound       = NewError(ErrCodeNotFound, "review not found")
	ErrConversationNotFound = NewError(ErrCodeNotFound, "conversation not found")
	ErrNotificationNotFound = NewError(ErrCodeNotFound, "notification not found")
	ErrCartEmpty            = NewError(ErrCodeValidation, "cart empty")
	ErrDuplicateReview      = NewError(ErrCodeDuplicateReview, "this seller was already reviewed for this order")
	ErrUnauthorized         = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden            = NewError(ErrCodeForbidden, "forbidden")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, INTERNAL otherwise.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	return IsDomainError(err, ErrCodeTransient)
}
