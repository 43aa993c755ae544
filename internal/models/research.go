package models

// ResearchStatus identifies the outcome of a research call
type ResearchStatus string

const (
	ResearchStatusSuccess     ResearchStatus = "success"
	ResearchStatusRateLimited ResearchStatus = "rate_limited"
	ResearchStatusUnavailable ResearchStatus = "unavailable"
)

// Placeholder text shown in reports when no summary could be produced
const (
	RateLimitedPlaceholder = "(rate limited)"
	UnavailablePlaceholder = "(research unavailable)"
)

// Research is the result of summarizing one market question.
// Text is only meaningful when Status is ResearchStatusSuccess.
type Research struct {
	Status ResearchStatus `json:"status"`
	Text   string         `json:"text,omitempty"`
}

// ResearchSuccess wraps provider text
func ResearchSuccess(text string) Research {
	return Research{Status: ResearchStatusSuccess, Text: text}
}

// ResearchRateLimited is returned when the provider throttled the request
func ResearchRateLimited() Research {
	return Research{Status: ResearchStatusRateLimited}
}

// ResearchUnavailable is returned for every other failure
func ResearchUnavailable() Research {
	return Research{Status: ResearchStatusUnavailable}
}

// Display returns the text to render for this result
func (r Research) Display() string {
	switch r.Status {
	case ResearchStatusSuccess:
		return r.Text
	case ResearchStatusRateLimited:
		return RateLimitedPlaceholder
	default:
		return UnavailablePlaceholder
	}
}
