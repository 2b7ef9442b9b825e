package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by the ledger and forecasting layers.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeIntegrityViolation = "INTEGRITY_VIOLATION"
	CodeUpstreamFailure    = "UPSTREAM_FAILURE"
	CodeNoHistory          = "NO_HISTORY"
	CodeConcurrency        = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so sentinels compare against wrapped copies.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps err as its cause
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   err,
	}
}

// NewUpstreamError wraps a datastore or collaborator failure
func NewUpstreamError(op string, err error) *DomainError {
	return WrapDomainError(CodeUpstreamFailure, op+" failed", err)
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidQuantity     = NewDomainError(CodeInvalidQuantity, "Invalid quantity")
	ErrIntegrityViolation  = NewDomainError(CodeIntegrityViolation, "Stock ledger integrity violation")
	ErrUpstreamFailure     = NewDomainError(CodeUpstreamFailure, "Upstream dependency failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
)

// Warning is a recovered anomaly reported alongside a successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewIntegrityWarning builds the warning emitted when an aggregate would go negative
func NewIntegrityWarning(message string) Warning {
	return Warning{Code: CodeIntegrityViolation, Message: message}
}
