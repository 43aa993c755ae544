package models

import "time"

// Report is the rendered notification for one run
type Report struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`           // Canonical plain-text body
	HTML    string `json:"html,omitempty"` // Optional HTML alternative of Text
}

// DispatchResult describes the outcome of a single delivery attempt
type DispatchResult struct {
	Delivered bool   `json:"delivered"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"` // Failure reason when Delivered is false
}

// RunResult summarizes one pipeline execution
type RunResult struct {
	RunID          string                 `json:"run_id"`
	StartedAt      time.Time              `json:"started_at"`
	Duration       time.Duration          `json:"duration"`
	MarketsFetched int                    `json:"markets_fetched"`
	Picks          []Pick                 `json:"picks"`
	ResearchCounts map[ResearchStatus]int `json:"research_counts"`
	Report         *Report                `json:"report,omitempty"`
	Dispatch       *DispatchResult        `json:"dispatch,omitempty"`
}
