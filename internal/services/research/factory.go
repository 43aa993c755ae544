package research

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// NewSummarizer builds the summarizer selected by research.provider.
// Returns nil, nil for provider "none".
func NewSummarizer(ctx context.Context, cfg *common.ResearchConfig, httpClient *http.Client, logger arbor.ILogger) (interfaces.Summarizer, error) {
	switch cfg.Provider {
	case "none", "":
		logger.Info().Msg("Research disabled, picks will use the unavailable placeholder")
		return nil, nil
	case "huggingface":
		return NewHuggingFaceSummarizer(cfg.HuggingFace.URL, cfg.HuggingFace.APIKey, httpClient, logger), nil
	case "claude":
		summarizer, err := NewClaudeSummarizer(cfg.Claude.APIKey, cfg.Claude.Model, logger)
		if err != nil {
			return nil, err
		}
		return summarizer, nil
	case "gemini":
		summarizer, err := NewGeminiSummarizer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, "", logger)
		if err != nil {
			return nil, err
		}
		return summarizer, nil
	default:
		return nil, fmt.Errorf("unsupported research provider: %s", cfg.Provider)
	}
}

// Temperature returns the configured temperature for the selected provider
func Temperature(cfg *common.ResearchConfig) float32 {
	switch cfg.Provider {
	case "claude":
		return cfg.Claude.Temperature
	case "gemini":
		return cfg.Gemini.Temperature
	default:
		return 0
	}
}
