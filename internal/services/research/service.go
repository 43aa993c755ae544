// Package research produces short, neutral summaries of market questions.
// Every failure is converted into a placeholder result; nothing here aborts a run.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
	"github.com/ternarybob/alphapicks/internal/models"
)

// PromptTemplate is the fixed instruction wrapped around each question
const PromptTemplate = `Summarize this prediction market question in 2 sentences: "%s"`

// Defaults used when the service is constructed with zero values
const (
	DefaultTimeout   = 20 * time.Second
	DefaultMaxTokens = 80
)

// Service wraps a Summarizer with the placeholder failure policy
type Service struct {
	summarizer  interfaces.Summarizer
	timeout     time.Duration
	maxTokens   int
	temperature float32
	logger      arbor.ILogger
}

// NewService creates a research service. A nil summarizer disables research:
// every pick then receives the unavailable placeholder without network I/O.
func NewService(summarizer interfaces.Summarizer, timeout time.Duration, maxTokens int, temperature float32, logger arbor.ILogger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Service{
		summarizer:  summarizer,
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Prompt renders the instruction for a question
func Prompt(question string) string {
	return fmt.Sprintf(PromptTemplate, question)
}

// Enabled reports whether a summarizer is configured
func (s *Service) Enabled() bool {
	return s.summarizer != nil
}

// Research summarizes one question with a single provider attempt
func (s *Service) Research(ctx context.Context, question string) models.Research {
	if s.summarizer == nil {
		return models.ResearchUnavailable()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	text, err := s.summarizer.Summarize(callCtx, interfaces.SummaryRequest{
		Prompt:      Prompt(question),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		if IsRateLimited(err) {
			s.logger.Warn().
				Err(err).
				Str("provider", s.summarizer.Name()).
				Str("question", question).
				Msg("Research rate limited")
			return models.ResearchRateLimited()
		}
		s.logger.Warn().
			Err(err).
			Str("provider", s.summarizer.Name()).
			Str("question", question).
			Msg("Research unavailable")
		return models.ResearchUnavailable()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn().
			Str("provider", s.summarizer.Name()).
			Str("question", question).
			Msg("Research returned empty text")
		return models.ResearchUnavailable()
	}

	s.logger.Debug().
		Str("provider", s.summarizer.Name()).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Research completed")

	return models.ResearchSuccess(text)
}

// EnrichAll researches each selected market in selection order, one call at a time
func (s *Service) EnrichAll(ctx context.Context, selection []models.ScoredMarket) []models.Pick {
	picks := make([]models.Pick, 0, len(selection))
	for _, scored := range selection {
		picks = append(picks, models.Pick{
			ScoredMarket: scored,
			Research:     s.Research(ctx, scored.Market.Question),
		})
	}
	return picks
}
