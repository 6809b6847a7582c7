// Package errors defines the categorized errors returned by the gateway's
// services and how each one maps to an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Aghostraa/oli-frontend/internal/types"
)

// ErrorCategory groups error codes for logging and retry decisions
type ErrorCategory string

const (
	CategoryUserInput     ErrorCategory = "user_input"
	CategorySystem        ErrorCategory = "system"
	CategoryUpstream      ErrorCategory = "upstream"
	CategoryDatabase      ErrorCategory = "database"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryRateLimit     ErrorCategory = "rate_limit"
)

// Error codes sent to clients in the error body
const (
	CodeMissingParameter    = "MISSING_PARAMETER"
	CodeInvalidChain        = "INVALID_CHAIN"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeInvalidCaip10       = "INVALID_CAIP10"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodeDatabase            = "DATABASE_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
)

type codeInfo struct {
	category ErrorCategory
	status   int
}

var codes = map[string]codeInfo{
	CodeMissingParameter:    {CategoryUserInput, http.StatusBadRequest},
	CodeInvalidChain:        {CategoryUserInput, http.StatusBadRequest},
	CodeInvalidAddress:      {CategoryUserInput, http.StatusBadRequest},
	CodeInvalidCaip10:       {CategoryUserInput, http.StatusBadRequest},
	CodeRateLimitExceeded:   {CategoryRateLimit, http.StatusTooManyRequests},
	CodeInternal:            {CategorySystem, http.StatusInternalServerError},
	CodeNotConfigured:       {CategoryConfiguration, http.StatusInternalServerError},
	CodeDatabase:            {CategoryDatabase, http.StatusInternalServerError},
	CodeServiceUnavailable:  {CategorySystem, http.StatusServiceUnavailable},
	CodeUpstream:            {CategoryUpstream, http.StatusBadGateway},
	CodeUpstreamUnavailable: {CategoryUpstream, http.StatusBadGateway},
	CodeUpstreamTimeout:     {CategoryUpstream, http.StatusRequestTimeout},
}

// CategorizedError is an error with a client-facing code and HTTP status
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError returns the body sent to clients
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{Code: e.Code, Message: e.Message, Details: e.Details}
}

// newError looks up the category and status of code; unknown codes are
// internal errors
func newError(code, message string, cause error, details map[string]interface{}) *CategorizedError {
	info, ok := codes[code]
	if !ok {
		info = codes[CodeInternal]
	}
	return &CategorizedError{
		Category:   info.category,
		StatusCode: info.status,
		Code:       code,
		Message:    message,
		Details:    details,
		Cause:      cause,
	}
}

// NewMissingParameterError is returned when a required query parameter is absent.
// The message matches what the site's search page shows verbatim.
func NewMissingParameterError(param string) *CategorizedError {
	return newError(CodeMissingParameter, param+" is required", nil,
		map[string]interface{}{"parameter": param})
}

// NewInvalidChainError is returned for a chain token that resolves to no known chain
func NewInvalidChainError(token string) *CategorizedError {
	return newError(CodeInvalidChain, "unknown chain: "+token, nil,
		map[string]interface{}{"chain": token})
}

func NewInvalidAddressError(address string) *CategorizedError {
	return newError(CodeInvalidAddress, "invalid address format: "+address, nil,
		map[string]interface{}{"address": address})
}

func NewInvalidCaip10Error(value string) *CategorizedError {
	return newError(CodeInvalidCaip10, "invalid CAIP-10 identifier: "+value, nil,
		map[string]interface{}{"value": value})
}

// NewRateLimitError tells the client to come back after retryAfter seconds
func NewRateLimitError(retryAfter int) *CategorizedError {
	return newError(CodeRateLimitExceeded, "rate limit exceeded", nil,
		map[string]interface{}{"retryAfter": retryAfter})
}

func NewInternalError(message string, cause error) *CategorizedError {
	return newError(CodeInternal, message, cause, nil)
}

// NewNotConfiguredError is returned when a feature needs a setting that is not present
func NewNotConfiguredError(setting string, message string) *CategorizedError {
	return newError(CodeNotConfigured, message, nil,
		map[string]interface{}{"setting": setting})
}

func NewDatabaseError(operation string, cause error) *CategorizedError {
	return newError(CodeDatabase, "database error during "+operation, cause,
		map[string]interface{}{"operation": operation})
}

// NewServiceUnavailableError is returned when an optional dependency is not wired
func NewServiceUnavailableError(service string) *CategorizedError {
	return newError(CodeServiceUnavailable, "service unavailable: "+service, nil,
		map[string]interface{}{"service": service})
}

// NewUpstreamError wraps a non-2xx answer from the OLI backend. The upstream
// status is kept so the caller sees the same 401/404/429 the backend returned.
func NewUpstreamError(operation string, statusCode int, body interface{}, cause error) *CategorizedError {
	err := newError(CodeUpstream, "", cause,
		map[string]interface{}{"operation": operation, "details": body})
	if statusCode >= 400 {
		err.StatusCode = statusCode
	}
	err.Message = fmt.Sprintf("upstream %s request failed (%d)", operation, err.StatusCode)
	return err
}

// NewUpstreamUnavailableError is returned when the OLI backend cannot be reached at all
func NewUpstreamUnavailableError(operation string, cause error) *CategorizedError {
	return newError(CodeUpstreamUnavailable, fmt.Sprintf("upstream %s request could not be completed", operation), cause,
		map[string]interface{}{"operation": operation})
}

func NewUpstreamTimeoutError(operation string) *CategorizedError {
	return newError(CodeUpstreamTimeout, operation+" request timed out", nil,
		map[string]interface{}{"operation": operation})
}

// Categorize finds the CategorizedError in err's chain. A bare ServiceError is
// mapped by its code and anything else becomes an internal error.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		mapped := newError(svcErr.Code, svcErr.Message, nil, svcErr.Details)
		if _, known := codes[svcErr.Code]; !known {
			// keep the caller's code even though it is treated as internal
			mapped.Code = svcErr.Code
		}
		return mapped
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the status err maps to; nil maps to 500
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether repeating the same call could succeed
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryDatabase:
		return true
	case CategoryUpstream:
		// 4xx answers from the backend will not change on retry, except throttling
		return catErr.StatusCode >= 500 || catErr.StatusCode == http.StatusTooManyRequests
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// IsUserError reports whether err maps to a 4xx status
func IsUserError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
