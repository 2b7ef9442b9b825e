package dto

import (
	"net/http"

	"github.com/erp/stockledger/internal/domain/shared"
)

// General errors
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request errors
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Ledger errors
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeInvalidQuantity     = "ERR_INVALID_QUANTITY"
	ErrCodeIntegrityViolation  = "ERR_INTEGRITY_VIOLATION"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeNoHistory           = "ERR_NO_HISTORY"
)

// Dependency errors
const (
	ErrCodeUpstreamFailure    = "ERR_UPSTREAM_FAILURE"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidQuantity:     http.StatusUnprocessableEntity,
	ErrCodeIntegrityViolation:  http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeNoHistory:           http.StatusUnprocessableEntity,

	ErrCodeUpstreamFailure:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an API error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:           ErrCodeNotFound,
	shared.CodeInvalidInput:       ErrCodeInvalidInput,
	shared.CodeInvalidQuantity:    ErrCodeInvalidQuantity,
	shared.CodeIntegrityViolation: ErrCodeIntegrityViolation,
	shared.CodeUpstreamFailure:    ErrCodeUpstreamFailure,
	shared.CodeNoHistory:          ErrCodeNoHistory,
	shared.CodeConcurrency:        ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":            ErrCodeValidation,
	"BAD_REQUEST":                 ErrCodeBadRequest,
	"INTERNAL_ERROR":              ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes already in API form are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
