// Package errhandling classifies the errors raised while talking to the
// source and target APIs. Categories label failures in logs and in the
// migration report; nothing in recoverdata retries.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNetwork represents network-related errors (timeout, connection refused, DNS).
	CategoryNetwork ErrorCategory = "network"

	// CategoryAuthentication represents authentication errors (401, 403).
	CategoryAuthentication ErrorCategory = "authentication"

	// CategoryValidation represents rejected requests (400, 422 and other 4xx).
	CategoryValidation ErrorCategory = "validation"

	// CategoryRateLimit represents rate limiting errors (429).
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryServer represents server errors (5xx).
	CategoryServer ErrorCategory = "server"

	// CategoryNotFound represents not found errors (404).
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryCanceled represents a run interrupted by the caller.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Transient is true when re-running the same request could succeed
	// (network failures, 429, 5xx).
	Transient bool

	// StatusCode is the HTTP status code (0 if not an HTTP error).
	StatusCode int

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

type statusClass struct {
	category  ErrorCategory
	transient bool
	message   string
}

var knownStatuses = map[int]statusClass{
	400: {CategoryValidation, false, "bad request"},
	401: {CategoryAuthentication, false, "unauthorized"},
	403: {CategoryAuthentication, false, "forbidden"},
	404: {CategoryNotFound, false, "not found"},
	409: {CategoryValidation, false, "conflict"},
	422: {CategoryValidation, false, "unprocessable entity"},
	429: {CategoryRateLimit, true, "rate limited"},
	500: {CategoryServer, true, "internal server error"},
	502: {CategoryServer, true, "bad gateway"},
	503: {CategoryServer, true, "service unavailable"},
	504: {CategoryServer, true, "gateway timeout"},
}

// ClassifyHTTPStatus classifies an HTTP error based on status code.
//
// Classification rules:
//   - 401, 403: authentication
//   - 404: not found
//   - 429: rate limit (transient)
//   - 5xx: server (transient)
//   - other 4xx: validation
//   - anything else: unknown, carrying message
func ClassifyHTTPStatus(statusCode int, message string) *ClassifiedError {
	if c, ok := knownStatuses[statusCode]; ok {
		return &ClassifiedError{
			Category:   c.category,
			Transient:  c.transient,
			StatusCode: statusCode,
			Message:    c.message,
		}
	}
	switch {
	case statusCode >= 500:
		return &ClassifiedError{Category: CategoryServer, Transient: true, StatusCode: statusCode, Message: "server error"}
	case statusCode >= 400:
		return &ClassifiedError{Category: CategoryValidation, StatusCode: statusCode, Message: "client error"}
	default:
		return &ClassifiedError{Category: CategoryUnknown, StatusCode: statusCode, Message: message}
	}
}

// ClassifyNetworkError classifies a transport-level error
// (timeouts, refused connections, DNS and URL errors).
func ClassifyNetworkError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Message: "nil error"}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewNetworkError("request timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Category: CategoryCanceled, Message: "context canceled", OriginalErr: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewNetworkError(fmt.Sprintf("DNS error: %s", dnsErr.Name), err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewNetworkError(fmt.Sprintf("network error: %s %s", opErr.Op, opErr.Net), err)
	}

	type timeoutError interface {
		Timeout() bool
	}
	var timeoutErr timeoutError
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return NewNetworkError("timeout", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewNetworkError(fmt.Sprintf("URL error: %s %s", urlErr.Op, urlErr.URL), err)
	}

	return &ClassifiedError{Category: CategoryUnknown, Message: err.Error(), OriginalErr: err}
}

// StatusCoder is implemented by HTTP error types that carry a response status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as is. Errors implementing
// StatusCoder with a non-zero status are classified by status.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Message: "nil error"}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() > 0 {
		c := ClassifyHTTPStatus(sc.HTTPStatusCode(), err.Error())
		c.OriginalErr = err
		return c
	}

	return ClassifyNetworkError(err)
}

// NewNetworkError creates a ClassifiedError for network errors.
func NewNetworkError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryNetwork,
		Transient:   true,
		Message:     message,
		OriginalErr: originalErr,
	}
}
