package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies why a vendor exchange failed
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNetwork
	KindVendor
	KindResponseShape
)

// String returns the kind as shown to users
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindVendor:
		return "vendor"
	case KindResponseShape:
		return "response shape"
	}
	return "unknown"
}

var (
	ErrValidation    = errors.New("validation error")
	ErrNetwork       = errors.New("network error")
	ErrVendor        = errors.New("vendor error")
	ErrResponseShape = errors.New("unexpected response shape")
)

// Error is a failed exchange with the vendor. StatusCode is zero when no
// HTTP response was received.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline expiring
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Is lets errors.Is match an *Error against the sentinel of its kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrVendor:
		return e.Kind == KindVendor
	case ErrResponseShape:
		return e.Kind == KindResponseShape
	}
	return false
}

// NewValidationError creates an error for a request rejected before sending
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewNetworkError creates an error for a request that got no HTTP response
func NewNetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}

// NewVendorError creates an error for a vendor-reported failure
func NewVendorError(statusCode int, msg string) *Error {
	return &Error{Kind: KindVendor, StatusCode: statusCode, Message: msg}
}

// NewResponseShapeError creates an error for a body missing an expected field
func NewResponseShapeError(statusCode int, msg string) *Error {
	return &Error{Kind: KindResponseShape, StatusCode: statusCode, Message: msg}
}

// Outcome is the normalized result of one vendor exchange. Exactly one of
// Err or the success fields is meaningful.
type Outcome struct {
	ModelID  string
	ImageURL string
	Message  string
	Err      *Error
}

// Success creates a successful outcome with a user-facing message
func Success(msg string) Outcome {
	return Outcome{Message: msg}
}

// Failure creates a failed outcome carrying err
func Failure(err *Error) Outcome {
	return Outcome{Err: err, Message: err.Message}
}

// OK reports whether the exchange succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// AsError returns the failure as a plain error, or nil on success
func (o Outcome) AsError() error {
	if o.Err == nil {
		return nil
	}
	return o.Err
}

// ErrorFrom returns err as an *Error, wrapping it with the given kind when
// it is not one already.
func ErrorFrom(err error, kind Kind) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}
