package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnavailable   = errors.New("service unavailable")
	ErrServer        = errors.New("server error")

	// ErrStreamTruncated signals a stream that closed without a done or error event.
	ErrStreamTruncated = errors.New("stream ended without a terminal event")
)

// QuotaInfo describes the exhausted counter of a quota rejection.
type QuotaInfo struct {
	CurrentUsage int    `json:"currentUsage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Kind         string `json:"kind"` // "messages" or "tokens"
}

// APIError is a non-2xx answer. Message is the server's user-facing text.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
	Quota      *QuotaInfo
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("regassist: %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("regassist: %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto a sentinel. A 429 with a quota body is ErrQuotaExceeded.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests && e.Quota != nil:
		return ErrQuotaExceeded
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.StatusCode >= 500:
		return ErrServer
	}
	return nil
}

// StreamError is a stream that ended with an error event after it started.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "regassist: stream: " + e.Message }
