// Package apperrors classifies the business and infrastructure failures the
// ordering engine reports to its callers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the category of a rejected operation.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindInsufficientBalance
	KindTransient
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInsufficientBalance:
		return "INSUFFICIENT_BALANCE"
	case KindTransient:
		return "TRANSIENT"
	case KindInvariant:
		return "INVARIANT"
	default:
		return "UNKNOWN"
	}
}

// Error carries a display-ready message alongside its kind. Two Errors match
// under errors.Is when their kinds and codes are equal, so a sentinel with a
// formatted message still matches its bare sentinel.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

var (
	ErrEmptyCart           = &Error{Kind: KindValidation, Code: "empty_cart", Message: "Cart is empty"}
	ErrInvalidTotal        = &Error{Kind: KindValidation, Code: "invalid_total", Message: "Order total must be positive"}
	ErrInvalidPoints       = &Error{Kind: KindValidation, Code: "invalid_points", Message: "Points must be positive"}
	ErrItemUnavailable     = &Error{Kind: KindValidation, Code: "item_unavailable", Message: "Item is not available"}
	ErrOrderBlocked        = &Error{Kind: KindConflict, Code: "order_blocked", Message: "An order is already awaiting payment; pay or cancel it first"}
	ErrPaymentInFlight     = &Error{Kind: KindConflict, Code: "payment_in_flight", Message: "A payment for this order is already in progress"}
	ErrOrderNotPayable     = &Error{Kind: KindConflict, Code: "order_not_payable", Message: "Order is not awaiting payment"}
	ErrPaymentClosed       = &Error{Kind: KindConflict, Code: "payment_closed", Message: "Payment has already been settled"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Code: "insufficient_balance", Message: "Insufficient loyalty points"}
	ErrInvalidTransition   = &Error{Kind: KindInvariant, Code: "invalid_transition", Message: "Invalid order status transition"}
	ErrNotFound            = &Error{Kind: KindNotFound, Code: "not_found", Message: "Record not found"}
	ErrConcurrentUpdate    = &Error{Kind: KindConflict, Code: "concurrent_update", Message: "The record changed while processing; retry the request"}
	ErrGateway             = &Error{Kind: KindTransient, Code: "gateway", Message: "Payment gateway unavailable"}
)

// Validation builds a one-off validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "validation", Message: message}
}

// Invariant builds a data integrity fault.
func Invariant(format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Code: "invariant", Message: fmt.Sprintf(format, args...)}
}

// Withf returns a copy of the sentinel with a more specific message.
func Withf(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to the sentinel.
func Wrap(base *Error, err error) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: err}
}

// KindOf extracts the kind of err. Unclassified errors are reported as
// transient infrastructure failures.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindTransient, false
}

// Message returns the display message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// KindIs reports whether err is a classified error of kind k.
func KindIs(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
