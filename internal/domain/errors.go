package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadablePDF signals a corrupt, encrypted, or otherwise unparsable PDF.
	ErrUnreadablePDF = errors.New("unreadable pdf")
	// ErrEmptyIndex signals a search against an index with no chunks.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrMalformedLLMOutput signals a generator reply that failed schema validation.
	ErrMalformedLLMOutput = errors.New("malformed llm output")
	// ErrGenerationFailed signals an upstream LLM API failure or timeout.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrRateLimited signals a rate limit hit on an upstream provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrLoggingUnavailable signals an unreachable query-log store.
	// Never propagated to callers; reduced to a warning.
	ErrLoggingUnavailable = errors.New("query log unavailable")

	// ErrInvalidArgument signals a malformed request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// MalformedOutputError wraps ErrMalformedLLMOutput with the field that failed validation.
type MalformedOutputError struct {
	Field  string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrMalformedLLMOutput.Error(), e.Field, e.Reason)
}

func (e *MalformedOutputError) Unwrap() error { return ErrMalformedLLMOutput }

// NewMalformedOutput creates a malformed output error for a single field.
func NewMalformedOutput(field, reason string) error {
	return &MalformedOutputError{Field: field, Reason: reason}
}
