package clauseinsight

import (
	"errors"
	"fmt"
)

// Sentinel errors for common service conditions.
// Use errors.Is() to check; the concrete error is always a *APIError.
var (
	ErrUnauthorized  = errors.New("clauseinsight: unauthorized")
	ErrUnreadablePDF = errors.New("clauseinsight: unreadable pdf")
	ErrNotFound      = errors.New("clauseinsight: not found")
	ErrEmptyIndex    = errors.New("clauseinsight: no document indexed")
	ErrRateLimited   = errors.New("clauseinsight: rate limited")
	ErrUpstream      = errors.New("clauseinsight: upstream provider failed")
)

// APIError is a structured error response from the service.
type APIError struct {
	StatusCode int    // HTTP status
	Code       string // machine-readable error code, e.g. "index_empty"
	Message    string // human-readable message
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("clauseinsight: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("clauseinsight: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Is matches service error codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == "unauthorized"
	case ErrUnreadablePDF:
		return e.Code == "unreadable_pdf"
	case ErrNotFound:
		return e.Code == "not_found"
	case ErrEmptyIndex:
		return e.Code == "index_empty"
	case ErrRateLimited:
		return e.Code == "rate_limited"
	case ErrUpstream:
		return e.Code == "generation_failed" ||
			e.Code == "embedding_failed" ||
			e.Code == "malformed_llm_output"
	default:
		return false
	}
}
