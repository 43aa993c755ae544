package research

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
	"github.com/ternarybob/alphapicks/internal/models"
)

// fakeSummarizer returns scripted responses keyed by call order
type fakeSummarizer struct {
	responses []fakeResponse
	requests  []interfaces.SummaryRequest
	deadlines []bool
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeSummarizer) Name() string { return "fake" }

func (f *fakeSummarizer) Summarize(ctx context.Context, request interfaces.SummaryRequest) (string, error) {
	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.requests = append(f.requests, request)

	i := len(f.requests) - 1
	if i >= len(f.responses) {
		return "", errors.New("unscripted call")
	}
	return f.responses[i].text, f.responses[i].err
}

func scored(question string, score float64) models.ScoredMarket {
	return models.ScoredMarket{Market: models.Market{Question: question}, Score: score}
}

func TestPrompt(t *testing.T) {
	assert.Equal(t,
		`Summarize this prediction market question in 2 sentences: "Will it rain?"`,
		Prompt("Will it rain?"))
}

func TestResearch_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		response fakeResponse
		expected models.Research
	}{
		{
			name:     "success is trimmed",
			response: fakeResponse{text: "\n  Two neutral sentences.  \n"},
			expected: models.ResearchSuccess("Two neutral sentences."),
		},
		{
			name:     "rate limit error",
			response: fakeResponse{err: &RateLimitError{Provider: "fake"}},
			expected: models.ResearchRateLimited(),
		},
		{
			name:     "wrapped rate limit error",
			response: fakeResponse{err: fmt.Errorf("call failed: %w", &RateLimitError{Provider: "fake"})},
			expected: models.ResearchRateLimited(),
		},
		{
			name:     "api error",
			response: fakeResponse{err: &APIError{Provider: "fake", StatusCode: 503, Message: "loading"}},
			expected: models.ResearchUnavailable(),
		},
		{
			name:     "transport error",
			response: fakeResponse{err: errors.New("dial tcp: connection refused")},
			expected: models.ResearchUnavailable(),
		},
		{
			name:     "blank text",
			response: fakeResponse{text: "   "},
			expected: models.ResearchUnavailable(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSummarizer{responses: []fakeResponse{tt.response}}
			svc := NewService(fake, time.Second, 80, 0, arbor.NewLogger())

			result := svc.Research(context.Background(), "Will it rain?")

			assert.Equal(t, tt.expected, result)
			require.Len(t, fake.requests, 1, "exactly one attempt per call")
		})
	}
}

func TestResearch_RequestShape(t *testing.T) {
	fake := &fakeSummarizer{responses: []fakeResponse{{text: "ok"}}}
	svc := NewService(fake, 5*time.Second, 120, 0.4, arbor.NewLogger())

	svc.Research(context.Background(), "Q?")

	require.Len(t, fake.requests, 1)
	assert.Equal(t, Prompt("Q?"), fake.requests[0].Prompt)
	assert.Equal(t, 120, fake.requests[0].MaxTokens)
	assert.Equal(t, float32(0.4), fake.requests[0].Temperature)
	assert.True(t, fake.deadlines[0], "each call carries a deadline")
}

func TestResearch_Defaults(t *testing.T) {
	svc := NewService(&fakeSummarizer{}, 0, 0, 0, arbor.NewLogger())
	assert.Equal(t, DefaultTimeout, svc.timeout)
	assert.Equal(t, DefaultMaxTokens, svc.maxTokens)
}

func TestResearch_Disabled(t *testing.T) {
	svc := NewService(nil, time.Second, 80, 0, arbor.NewLogger())

	assert.False(t, svc.Enabled())
	assert.Equal(t, models.ResearchUnavailable(), svc.Research(context.Background(), "Q?"))
}

func TestEnrichAll_FailuresAreIsolated(t *testing.T) {
	fake := &fakeSummarizer{responses: []fakeResponse{
		{err: &RateLimitError{Provider: "fake"}},
		{err: errors.New("boom")},
		{text: "Third summary."},
	}}
	svc := NewService(fake, time.Second, 80, 0, arbor.NewLogger())

	selection := []models.ScoredMarket{scored("A", 3), scored("B", 2), scored("C", 1)}
	picks := svc.EnrichAll(context.Background(), selection)

	require.Len(t, picks, 3)
	assert.Equal(t, "A", picks[0].Market.Question)
	assert.Equal(t, models.ResearchRateLimited(), picks[0].Research)
	assert.Equal(t, "B", picks[1].Market.Question)
	assert.Equal(t, models.ResearchUnavailable(), picks[1].Research)
	assert.Equal(t, "C", picks[2].Market.Question)
	assert.Equal(t, models.ResearchSuccess("Third summary."), picks[2].Research)

	// Scores pass through untouched
	assert.Equal(t, 3.0, picks[0].Score)
	assert.Equal(t, 1.0, picks[2].Score)

	// One call per item, in selection order
	require.Len(t, fake.requests, 3)
	assert.Equal(t, Prompt("A"), fake.requests[0].Prompt)
	assert.Equal(t, Prompt("B"), fake.requests[1].Prompt)
	assert.Equal(t, Prompt("C"), fake.requests[2].Prompt)
}

func TestEnrichAll_Empty(t *testing.T) {
	fake := &fakeSummarizer{}
	svc := NewService(fake, time.Second, 80, 0, arbor.NewLogger())

	picks := svc.EnrichAll(context.Background(), nil)

	assert.NotNil(t, picks)
	assert.Empty(t, picks)
	assert.Empty(t, fake.requests)
}

func TestEnrichAll_CancelledContextDegradesToPlaceholders(t *testing.T) {
	summarizer := summarizerFunc(func(ctx context.Context, _ interfaces.SummaryRequest) (string, error) {
		return "", ctx.Err()
	})
	svc := NewService(summarizer, time.Second, 80, 0, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	picks := svc.EnrichAll(ctx, []models.ScoredMarket{scored("A", 1), scored("B", 1)})

	require.Len(t, picks, 2)
	for _, pick := range picks {
		assert.Equal(t, models.ResearchUnavailable(), pick.Research)
	}
}

type summarizerFunc func(ctx context.Context, request interfaces.SummaryRequest) (string, error)

func (f summarizerFunc) Name() string { return "func" }

func (f summarizerFunc) Summarize(ctx context.Context, request interfaces.SummaryRequest) (string, error) {
	return f(ctx, request)
}
