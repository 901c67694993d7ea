package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Gateway error kinds. Every failure that crosses the remote data gateway
// boundary is classified as exactly one of these.
var (
	ErrConfiguration = NewDomainError("CONFIGURATION_ERROR", "Remote data gateway is not configured")
	ErrDataFetch     = NewDomainError("DATA_FETCH_ERROR", "Failed to fetch data")
	ErrMutation      = NewDomainError("MUTATION_ERROR", "Failed to apply change")
	ErrAuth          = NewDomainError("AUTH_ERROR", "Authentication failed")
)

// GatewayError carries the classified kind of a gateway failure together
// with the operation, the collection and the underlying cause.
type GatewayError struct {
	Kind       *DomainError
	Op         string
	Collection string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Kind.Code
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Collection != "" {
		msg += " " + e.Collection
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewConfigurationError reports a missing or invalid gateway configuration.
func NewConfigurationError(op string, cause error) error {
	return &GatewayError{Kind: ErrConfiguration, Op: op, Err: cause}
}

// NewDataFetchError reports a failed read against collection.
func NewDataFetchError(op, collection string, cause error) error {
	return &GatewayError{Kind: ErrDataFetch, Op: op, Collection: collection, Err: cause}
}

// NewMutationError reports a failed create, update or delete against collection.
func NewMutationError(op, collection string, cause error) error {
	return &GatewayError{Kind: ErrMutation, Op: op, Collection: collection, Err: cause}
}

// NewAuthError reports a failed sign-in, sign-out or session lookup.
func NewAuthError(op string, cause error) error {
	return &GatewayError{Kind: ErrAuth, Op: op, Err: cause}
}

// ErrorKind returns the classified domain error for err, or nil when err is
// not a domain error.
func ErrorKind(err error) *DomainError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// InvalidInputf builds an invalid input error with a formatted message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
