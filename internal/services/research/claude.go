package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// DefaultClaudeModel is used when no model is configured
const DefaultClaudeModel = "claude-haiku-4-5"

// ClaudeSummarizer generates summaries with the Anthropic Messages API
type ClaudeSummarizer struct {
	client anthropic.Client
	model  string
	logger arbor.ILogger
}

// NewClaudeSummarizer creates a Claude summarizer. SDK retries are disabled so
// each Summarize call is exactly one request; extra options (base URL, HTTP
// client) are appended after the defaults.
func NewClaudeSummarizer(apiKey, model string, logger arbor.ILogger, opts ...option.RequestOption) (*ClaudeSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude research")
	}
	if model == "" {
		model = DefaultClaudeModel
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	logger.Debug().
		Str("model", model).
		Msg("Claude summarizer initialized")

	return &ClaudeSummarizer{
		client: anthropic.NewClient(clientOpts...),
		model:  model,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (s *ClaudeSummarizer) Name() string {
	return "claude"
}

// Summarize sends the prompt as a single user message
func (s *ClaudeSummarizer) Summarize(ctx context.Context, request interfaces.SummaryRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(request.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(request.Temperature))
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests {
				return "", &RateLimitError{Provider: s.Name(), Err: err}
			}
			return "", &APIError{Provider: s.Name(), StatusCode: apiErr.StatusCode, Message: err.Error()}
		}
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}
