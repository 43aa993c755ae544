package research

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RateLimitError reports that a provider throttled the request
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s rate limit exceeded: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// APIError represents any other non-success response from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d)", e.Provider, e.Message, e.StatusCode)
}

// IsRateLimited reports whether err (or anything it wraps) is a RateLimitError
func IsRateLimited(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}

// looksRateLimited matches provider errors that only expose their status in
// the message text, such as Gemini's RESOURCE_EXHAUSTED.
func looksRateLimited(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}
