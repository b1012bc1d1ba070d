package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrOutOfStock   = errors.New("out of stock")
	ErrUnauthorized = errors.New("not authorized")
	ErrInvalidState = errors.New("invalid state transition")
	ErrUpstream     = errors.New("payment provider failure")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type OutOfStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("product %s is out of stock: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

type InvalidStateError struct {
	From    OrderStatus
	Command string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s an order in state %s", e.Command, e.From)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// UpstreamPaymentError wraps a failed payment provider call. The provider
// message is kept so callers can surface it as-is.
type UpstreamPaymentError struct {
	Provider string
	Err      error
}

func (e *UpstreamPaymentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamPaymentError) Unwrap() error {
	return e.Err
}

func (e *UpstreamPaymentError) Is(target error) bool {
	return target == ErrUpstream
}

func validationErrorFrom(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, lowerFirst(fe.Field()))
	}
	return &ValidationError{
		Field:   strings.Join(fields, ","),
		Message: "is required",
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
