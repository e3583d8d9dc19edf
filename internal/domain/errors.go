package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage signals a request without a usable message.
	ErrEmptyMessage = errors.New("message is required")
	// ErrMissingCredential signals that no provider API key is configured.
	ErrMissingCredential = errors.New("provider credential missing")
	// ErrQuotaExceeded signals an exhausted per-user quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrQuotaUnavailable signals that the quota store could not be reached under a fail-closed policy.
	ErrQuotaUnavailable = errors.New("quota store unavailable")
	// ErrProviderRateLimited signals a provider-side rate limit (HTTP 429).
	ErrProviderRateLimited = errors.New("provider rate limited")
	// ErrProviderUnauthorized signals an invalid provider credential (HTTP 401).
	ErrProviderUnauthorized = errors.New("provider credential invalid")
	// ErrProviderError signals any other provider or transport failure.
	ErrProviderError = errors.New("provider error")
	// ErrEmptyResponse signals a provider answer without any text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSourceNotFound signals a missing registry entry.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidStatus signals an unknown source status.
	ErrInvalidStatus = errors.New("invalid source status")
	// ErrRegistryClosed signals a registry mutation after shutdown.
	ErrRegistryClosed = errors.New("source registry closed")
)

// ErrorKind classifies pipeline failures for the caller.
type ErrorKind string

// Pipeline error kinds.
const (
	KindValidation       ErrorKind = "validation"
	KindConfiguration    ErrorKind = "configuration"
	KindQuota            ErrorKind = "quota"
	KindQuotaUnavailable ErrorKind = "quota_unavailable"
	KindRateLimited      ErrorKind = "rate_limited"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindTool             ErrorKind = "tool"
	KindParsing          ErrorKind = "parsing"
	KindTransport        ErrorKind = "transport"
	KindEmptyResponse    ErrorKind = "empty_response"
)

// PipelineError is the structured error surfaced by the query pipeline.
// Message is safe to show to end users; Err keeps the underlying cause for diagnostics.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError creates a PipelineError.
func NewPipelineError(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a pipeline error, or KindTransport for anything else.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}
