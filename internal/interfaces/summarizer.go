package interfaces

import (
	"context"
)

// SummaryRequest is a provider-agnostic text generation request
type SummaryRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Summarizer produces a short free-text summary for a prompt.
// Implementations make exactly one attempt per call and report throttling
// with an error that IsRateLimited recognizes.
type Summarizer interface {
	Summarize(ctx context.Context, request SummaryRequest) (string, error)
	Name() string
}
