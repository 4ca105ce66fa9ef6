package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure category surfaced to callers.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindRateLimited       Kind = "rate_limited"
	KindUpstreamAuth      Kind = "upstream_auth"
	KindUpstreamFailure   Kind = "upstream_failure"
	KindExtraction        Kind = "extraction"
	KindMisconfigured     Kind = "misconfigured"
	KindInvalidTransition Kind = "invalid_transition"
	KindBusy              Kind = "busy"
	KindNotFound          Kind = "not_found"
)

// Error is the single error type crossing package boundaries.
// Reason is safe to show to the client for validation, transition and not-found kinds only.
type Error struct {
	Kind   Kind
	Reason string
	Status int // upstream status code, 0 when unknown
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind when the target carries no reason,
// so the package-level sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Reason == e.Reason
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrUpstreamAuth      = &Error{Kind: KindUpstreamAuth}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure}
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrMisconfigured     = &Error{Kind: KindMisconfigured}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrBusy              = &Error{Kind: KindBusy}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

func Validation(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func RateLimited(reason string) error {
	return &Error{Kind: KindRateLimited, Reason: reason}
}

func UpstreamAuth(status int, err error) error {
	return &Error{Kind: KindUpstreamAuth, Reason: "upstream rejected credentials", Status: status, Err: err}
}

func UpstreamFailure(reason string, status int, err error) error {
	return &Error{Kind: KindUpstreamFailure, Reason: reason, Status: status, Err: err}
}

func Extraction(reason string) error {
	return &Error{Kind: KindExtraction, Reason: reason}
}

func Misconfigured(reason string) error {
	return &Error{Kind: KindMisconfigured, Reason: reason}
}

func InvalidTransition(reason string) error {
	return &Error{Kind: KindInvalidTransition, Reason: reason}
}

func Busy(reason string) error {
	return &Error{Kind: KindBusy, Reason: reason}
}

func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// KindOf returns the kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// UserMessage returns the text that may be shown to an end user.
// Upstream detail and model output never reach this string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "Internal server error"
	}

	switch appErr.Kind {
	case KindValidation, KindInvalidTransition, KindNotFound:
		if appErr.Reason != "" {
			return appErr.Reason
		}
		return "Invalid request"
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindUpstreamAuth, KindMisconfigured:
		return "Server configuration error. Please try again later."
	case KindUpstreamFailure:
		return "The model provider could not complete the request. Please try again."
	case KindExtraction:
		return "Failed to parse response, please try again."
	case KindBusy:
		return "Another request is already in progress."
	default:
		return "Internal server error"
	}
}
