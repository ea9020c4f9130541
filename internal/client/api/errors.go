package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed auth API call. The mapping from HTTP status or
// transport failure to Kind is centralized here so every call site makes the
// same UI decision for the same failure.
type Kind string

const (
	// KindUnauthorized is HTTP 401: an expected signed-out state, not a
	// visible error.
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden is HTTP 403: authenticated but denied.
	KindForbidden Kind = "forbidden"
	// KindServerError is HTTP 500.
	KindServerError Kind = "server-error"
	// KindUnavailable is HTTP 503.
	KindUnavailable Kind = "unavailable"
	// KindNetwork means the backend could not be reached at all.
	KindNetwork Kind = "network"
	// KindUnknown is any other non-2xx response.
	KindUnknown Kind = "unknown"
)

// Error is a classified auth API failure. Status is zero for transport
// failures.
type Error struct {
	Kind   Kind
	Status int
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("auth api: %s", e.Kind)
	}
	return fmt.Sprintf("auth api: %s (http %d)", e.Kind, e.Status)
}

// classifyStatus maps a non-2xx HTTP status to a Kind.
func classifyStatus(status int) Kind {
	switch status {
	case 401:
		return KindUnauthorized
	case 403:
		return KindForbidden
	case 500:
		return KindServerError
	case 503:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// statusError returns the classified error for a non-2xx status.
func statusError(status int) *Error {
	return &Error{Kind: classifyStatus(status), Status: status}
}

// networkError returns the classified error for a transport failure.
func networkError() *Error {
	return &Error{Kind: KindNetwork}
}

// ErrorKind extracts the Kind from err, or KindUnknown if err is not a
// classified API error.
func ErrorKind(err error) Kind {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
