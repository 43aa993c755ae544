package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// DefaultHuggingFaceURL is the inference router endpoint for the default model
const DefaultHuggingFaceURL = "https://router.huggingface.co/meta-llama/Llama-3-8B-Instruct"

// HuggingFaceSummarizer calls a Hugging Face text-generation endpoint
type HuggingFaceSummarizer struct {
	url        string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float32 `json:"temperature,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFaceSummarizer creates a summarizer for the given endpoint.
// httpClient may be nil; the per-call deadline comes from the context.
func NewHuggingFaceSummarizer(url, token string, httpClient *http.Client, logger arbor.ILogger) *HuggingFaceSummarizer {
	if url == "" {
		url = DefaultHuggingFaceURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HuggingFaceSummarizer{
		url:        url,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the provider name
func (s *HuggingFaceSummarizer) Name() string {
	return "huggingface"
}

// Summarize posts the prompt and returns the first generated text
func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, request interfaces.SummaryRequest) (string, error) {
	payload := hfRequest{
		Inputs: request.Prompt,
		Parameters: hfParameters{
			MaxNewTokens: request.MaxTokens,
		},
	}
	if request.Temperature > 0 {
		temperature := request.Temperature
		payload.Parameters.Temperature = &temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{Provider: s.Name(), RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().
			Int("status", resp.StatusCode).
			Msg("Hugging Face returned non-success status")
		return "", &APIError{
			Provider:   s.Name(),
			StatusCode: resp.StatusCode,
			Message:    common.Truncate(strings.TrimSpace(string(respBody)), 256),
		}
	}

	return parseGeneration(respBody)
}

// parseGeneration accepts the list form [{"generated_text": ...}] and the
// single-object form {"generated_text": ...}; anything else is malformed.
func parseGeneration(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty response body")
	}

	switch trimmed[0] {
	case '[':
		var generations []hfGeneration
		if err := json.Unmarshal(trimmed, &generations); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(generations) == 0 {
			return "", fmt.Errorf("response contained no generations")
		}
		return nonEmpty(generations[0].GeneratedText)
	case '{':
		var generation hfGeneration
		if err := json.Unmarshal(trimmed, &generation); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		return nonEmpty(generation.GeneratedText)
	default:
		return "", fmt.Errorf("unexpected response format")
	}
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("response contained empty generated_text")
	}
	return text, nil
}

func parseRetryAfter(value string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value) + "s"); err == nil && d > 0 {
		return d
	}
	return 0
}

