// Package errors defines the Anchor error taxonomy claudish maps every
// failure into, whether raised locally (validation) or classified from a
// backend's response.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is one of the Anchor error event types.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindAuthentication Kind = "authentication_error"
	KindModelNotFound  Kind = "model_not_found"
	KindCapability     Kind = "capability_error"
	KindConnection     Kind = "connection_error"
	KindRateLimit      Kind = "rate_limit_error"
	KindOverloaded     Kind = "overloaded_error"
	KindAPI            Kind = "api_error"
	KindTimeout        Kind = "timeout_error"
)

// httpStatus is the status used when an AnchorError fires pre-stream, i.e.
// before any SSE bytes have been written.
var httpStatus = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindAuthentication: http.StatusUnauthorized,
	KindModelNotFound:  http.StatusNotFound,
	KindCapability:     http.StatusUnprocessableEntity,
	KindConnection:     http.StatusBadGateway,
	KindRateLimit:      http.StatusTooManyRequests,
	KindOverloaded:     http.StatusServiceUnavailable,
	KindAPI:            http.StatusInternalServerError,
	KindTimeout:        http.StatusGatewayTimeout,
}

// AnchorError is the structured error claudish uses throughout: it carries
// enough to either write an HTTP error response before streaming starts, or
// an `error` SSE event followed by message_stop once streaming is underway.
type AnchorError struct {
	Kind     Kind
	Message  string
	Provider string
	Model    string
	Cause    error
}

func (e *AnchorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AnchorError) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code to use if this error fires before any
// response bytes have been written.
func (e *AnchorError) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// EventPayload is the shape of the `error` field in an Anchor error event.
type EventPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Event returns the payload for an Anchor `error` SSE event.
func (e *AnchorError) Event() EventPayload {
	return EventPayload{Type: string(e.Kind), Message: e.Message}
}

func New(kind Kind, message string) *AnchorError {
	return &AnchorError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *AnchorError {
	return &AnchorError{Kind: kind, Message: message, Cause: cause}
}

// Validation builds a validation_error for malformed Anchor requests.
func Validation(format string, args ...any) *AnchorError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// As unwraps err into an *AnchorError if possible.
func As(err error) (*AnchorError, bool) {
	var ae *AnchorError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Classify examines a raw backend error (transport failure, non-2xx body,
// etc.) and returns the AnchorError it should surface as. If err is already
// an *AnchorError it is returned unchanged.
func Classify(err error, provider, model string) *AnchorError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "context canceled"),
		strings.Contains(errStr, "context deadline exceeded"),
		strings.Contains(errStr, "timeout"):
		return &AnchorError{Kind: KindTimeout, Message: "request timed out", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "unauthorized", "invalid api key", "401", "403", "authentication", "permission denied"):
		return &AnchorError{Kind: KindAuthentication, Message: "authentication failed", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "model not found", "404", "no such model", "unknown model"):
		return &AnchorError{Kind: KindModelNotFound, Message: "model not found", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "429", "rate limit", "too many requests"):
		return &AnchorError{Kind: KindRateLimit, Message: "rate limited", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "503", "529", "overloaded", "capacity"):
		return &AnchorError{Kind: KindOverloaded, Message: "backend overloaded", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "connection refused", "connection reset", "no such host", "dial tcp", "eof", "broken pipe"):
		return &AnchorError{Kind: KindConnection, Message: "could not reach backend", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "400", "bad request", "invalid argument", "invalid_request"):
		return &AnchorError{Kind: KindValidation, Message: "invalid request", Provider: provider, Model: model, Cause: err}

	case containsAny(errStr, "does not support", "unsupported", "capability"):
		return &AnchorError{Kind: KindCapability, Message: "capability not supported by backend", Provider: provider, Model: model, Cause: err}

	default:
		return &AnchorError{Kind: KindAPI, Message: "backend error", Provider: provider, Model: model, Cause: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
