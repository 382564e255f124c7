// Package fault defines the closed error taxonomy used at every fallible
// boundary of the guidance engine. A non-nil error returned by a core
// operation is always a *fault.Error, so callers and the retry layer can
// make backoff decisions without inspecting message text.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Code identifies a failure class.
type Code string

const (
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeServiceOverloaded  Code = "SERVICE_OVERLOADED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeAuthentication     Code = "AUTHENTICATION_ERROR"
	CodeInput              Code = "INPUT_ERROR"
	CodeUnknown            Code = "UNKNOWN_ERROR"
	CodeSearch             Code = "SEARCH_ERROR"
	CodeSchoolNotFound     Code = "SCHOOL_NOT_FOUND"
	CodeRefresh            Code = "REFRESH_ERROR"
	CodeProgramNotFound    Code = "PROGRAM_NOT_FOUND"
	CodeNoPrograms         Code = "NO_PROGRAMS"
	CodeCatalogBuild       Code = "CATALOG_BUILD_ERROR"
	CodeMaxRetriesExceeded Code = "MAX_RETRIES_EXCEEDED"
	CodeGuidance           Code = "GUIDANCE_ERROR"
	CodeTitleGeneration    Code = "TITLE_GENERATION_ERROR"
)

// Error is a classified failure. RetryAfter is a hint and may be zero even
// for retryable errors.
type Error struct {
	Code       Code
	Message    string
	CanRetry   bool
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a non-retryable error with the given code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a non-retryable error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Retryable creates a retryable error with an optional retry-after hint.
func Retryable(code Code, msg string, retryAfter time.Duration) *Error {
	return &Error{Code: code, Message: msg, CanRetry: true, RetryAfter: retryAfter}
}

// Wrap attaches a cause to a non-retryable error.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

// WrapRetryable attaches a cause to a retryable error.
func WrapRetryable(code Code, msg string, retryAfter time.Duration, cause error) *Error {
	return &Error{Code: code, Message: msg, CanRetry: true, RetryAfter: retryAfter, cause: cause}
}

// From returns err as a *fault.Error. Context cancellation maps to a
// non-retryable network error; anything unrecognized becomes UNKNOWN_ERROR.
func From(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeNetwork, "request cancelled", err)
	}
	return Wrap(CodeUnknown, "unexpected error", err)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Code == code
}

// CanRetry reports whether err is a retryable classified error.
func CanRetry(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.CanRetry
}

// ClassifyHTTP maps an upstream HTTP status to a classified error.
// retryAfter is the parsed Retry-After header value, zero when absent.
func ClassifyHTTP(status int, retryAfter time.Duration) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		if retryAfter == 0 {
			retryAfter = 30 * time.Second
		}
		return Retryable(CodeRateLimited, "upstream rate limit", retryAfter)
	case status == http.StatusServiceUnavailable:
		if retryAfter == 0 {
			retryAfter = 10 * time.Second
		}
		return Retryable(CodeServiceOverloaded, "upstream overloaded", retryAfter)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Newf(CodeAuthentication, "upstream rejected credentials (status %d)", status)
	case status >= 500:
		return Retryable(CodeNetwork, fmt.Sprintf("upstream server error (status %d)", status), 0)
	case status >= 400:
		return Newf(CodeInput, "upstream rejected request (status %d)", status)
	default:
		return Newf(CodeUnknown, "unexpected upstream status %d", status)
	}
}

// ClassifyTransport maps a transport-level error (dial failure, timeout,
// connection reset) to a classified error.
func ClassifyTransport(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeNetwork, "request cancelled", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapRetryable(CodeNetwork, "network timeout", 0, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return WrapRetryable(CodeNetwork, "network error", 0, err)
	}
	return WrapRetryable(CodeNetwork, "transport error", 0, err)
}

// ParseRetryAfter parses a Retry-After header value in delta-seconds form.
// Returns zero for empty or unparseable values.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
