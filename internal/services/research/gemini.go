package research

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiSummarizer generates summaries with the Google Gemini API
type GeminiSummarizer struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

// NewGeminiSummarizer creates a Gemini summarizer. baseURL overrides the API
// endpoint when non-empty.
func NewGeminiSummarizer(ctx context.Context, apiKey, model, baseURL string, logger arbor.ILogger) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for Gemini research")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug().
		Str("model", model).
		Msg("Gemini summarizer initialized")

	return &GeminiSummarizer{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (s *GeminiSummarizer) Name() string {
	return "gemini"
}

// Summarize sends the prompt as a single user turn
func (s *GeminiSummarizer) Summarize(ctx context.Context, request interfaces.SummaryRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(request.MaxTokens),
	}
	if request.Temperature > 0 {
		config.Temperature = genai.Ptr(request.Temperature)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(request.Prompt), config)
	if err != nil {
		if looksRateLimited(err) {
			return "", &RateLimitError{Provider: s.Name(), Err: err}
		}
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return text, nil
}
