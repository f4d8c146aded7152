package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinels for the router's error taxonomy. Status is what the webhook
// response carries; retryability means a provider redelivery could succeed,
// not that the router retries anything itself.
var (
	// Signature validation.
	ErrInvalidSignature  = NewError("AUTH_INVALID_SIGNATURE", "webhook verification failed", http.StatusUnauthorized).AsFatal()
	ErrMissingCredential = NewError("AUTH_MISSING_CREDENTIAL", "webhook verification failed", http.StatusUnauthorized).AsFatal()

	// Enrichment.
	ErrEnrichmentTimeout   = NewError("ENRICHMENT_TIMEOUT", "resource registry lookup timed out", http.StatusGatewayTimeout).AsRetryable()
	ErrResourceNotFound    = NewError("ENRICHMENT_NOT_FOUND", "repository is not registered", http.StatusNotFound).AsFatal()
	ErrRegistryUnavailable = NewError("ENRICHMENT_UNAVAILABLE", "resource registry unavailable", http.StatusBadGateway).AsRetryable()

	// Dispatch template resolution.
	ErrNoTargetConfigured = NewError("NO_TARGET_CONFIGURED", "no dispatch target configured for category", http.StatusInternalServerError).AsFatal()

	// Dispatch.
	ErrDispatchFailed = NewError("DISPATCH_FAILED", "execution engine rejected the dispatch", http.StatusBadGateway).AsRetryable()

	// Generic.
	ErrValidation  = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest).AsFatal()
	ErrInternal    = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrRateLimited = NewError("RATE_LIMITED", "rate limit exceeded", http.StatusTooManyRequests).AsRetryable()
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return e.Status >= http.StatusInternalServerError
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return e.Status < http.StatusInternalServerError
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	}
	err.Details[key] = value
	return &err
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := *e
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// Is reports whether err carries the sentinel's code, regardless of attached
// causes or details.
func Is(err error, sentinel *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == sentinel.Code
	}
	return false
}

func hasCodePrefix(err error, prefix string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return strings.HasPrefix(appErr.Code, prefix)
	}
	return false
}

// Stage classification, used by the front door for response mapping and by
// metrics for outcome labels.

func IsAuthError(err error) bool       { return hasCodePrefix(err, "AUTH_") }
func IsEnrichmentError(err error) bool { return hasCodePrefix(err, "ENRICHMENT_") }
func IsResolutionError(err error) bool { return Is(err, ErrNoTargetConfigured) }
func IsDispatchError(err error) bool   { return hasCodePrefix(err, "DISPATCH_") }
func IsValidation(err error) bool      { return Is(err, ErrValidation) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		// If it's not our error type, wrap it
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
