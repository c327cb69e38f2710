package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrModelNotFound = fmt.Errorf("model not found or not available")
	ErrRequestFailed = fmt.Errorf("request failed")
	ErrToolNotFound  = fmt.Errorf("tool not found")
	ErrToolDisabled  = fmt.Errorf("tool is disabled")
	ErrMaxIterations = fmt.Errorf("agent reached max iterations")
	ErrNoProvider    = fmt.Errorf("no provider configured")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g. "Router.Complete")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// IsRetryableError reports whether err is transient and may succeed on
// retry. Authentication and model-not-found errors are structural and are
// never retried.
func IsRetryableError(err error) bool {
	if errors.Is(err, ErrAuthInvalid) || errors.Is(err, ErrModelNotFound) {
		return false
	}
	return true
}
