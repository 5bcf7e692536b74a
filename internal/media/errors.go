package media

import (
	"errors"
	"fmt"
)

// Failure kinds shared across the ingestion pipeline and the reader. Callers
// match them with errors.Is so behavior is testable instead of log-only.
var (
	ErrInvalidType         = errors.New("unsupported media type")
	ErrDuplicateItem       = errors.New("item already present")
	ErrMissingRelatedRow   = errors.New("related row missing")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// ProviderError annotates a provider failure with where it happened.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func WrapProvider(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}
