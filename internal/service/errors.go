package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The HTTP layer maps each kind to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a categorized failure carrying a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an uncategorized failure. Its message is the underlying error text.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf returns the kind of err, KindInternal for uncategorized errors
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

var (
	ErrCartEmpty         = Validation("cart is empty")
	ErrUserNotFound      = NotFound("user not found")
	ErrProductNotFound   = NotFound("product not found")
	ErrOrderNotFound     = NotFound("order not found")
	ErrPromotionNotFound = NotFound("promotion code not found")
	ErrCartItemNotFound  = NotFound("cart item not found")
	ErrNotOrderOwner     = Forbidden("you do not have access to this order")
)
