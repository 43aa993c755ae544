// Package kalshi provides a read-only client for the Kalshi trade API market listings.
package kalshi

import (
	"fmt"
	"time"

	"github.com/ternarybob/alphapicks/internal/models"
)

// marketsResponse is the GET /markets envelope. Markets stay undecoded
// maps so the normalizer sees every field the API revision returns.
type marketsResponse struct {
	Markets []models.RawMarket `json:"markets"`
	Cursor  string             `json:"cursor"`
}

// APIError represents a non-success response from the Kalshi API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Kalshi API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a 429 response or a local limiter wait failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Kalshi rate limit exceeded, retry after %v", e.RetryAfter)
}
