package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so that callers can map it to a response without inspecting messages.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindExtraction      Kind = "extraction"
	KindUpstream        Kind = "upstream"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindParse           Kind = "parse"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindUnauthorized    Kind = "unauthorized"
	KindRateLimited     Kind = "rate_limited"
	KindCanceled        Kind = "canceled"
	KindInternal        Kind = "internal"
)

// StatusClientClosedRequest is reported when the caller went away before the pipeline finished.
const StatusClientClosedRequest = 499

// Error is a classified failure. Message is safe to show to callers; Err carries the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation is shorthand for New(KindValidation, message, nil).
func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

// KindOf reports the kind of err. Unclassified errors are KindInternal, except bare context
// cancellation which is KindCanceled.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindCanceled:
		return StatusClientClosedRequest
	case KindUpstream, KindParse:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to the caller. Internal errors never
// expose their cause.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal && appErr.Message != "" {
		return appErr.Message
	}
	switch KindOf(err) {
	case KindCanceled:
		return "request canceled"
	default:
		return "Unexpected server error"
	}
}
