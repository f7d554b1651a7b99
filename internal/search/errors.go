// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by lookup providers.
var (
	// ErrEmptyQuery indicates a query with no searchable terms.
	ErrEmptyQuery = errors.New("empty query")

	// ErrRateLimited indicates the provider kept throttling after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMalformedResponse indicates a body that could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound indicates an identifier lookup with no record.
	ErrNotFound = errors.New("not found")
)

// ProviderError wraps a failure of one lookup provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err comes from provider throttling.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

func providerErr(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// statusErr classifies a non-200 response.
func statusErr(provider string, code int) error {
	var err error
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		err = ErrRateLimited
	case http.StatusNotFound:
		err = ErrNotFound
	default:
		err = fmt.Errorf("unexpected status")
	}
	return &ProviderError{Provider: provider, StatusCode: code, Err: err}
}

func malformed(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
}
