package models

// RawMarket is a market record exactly as decoded from the market source.
// Keys and value types vary between API revisions; treat every field as untrusted.
type RawMarket map[string]interface{}

// Market is the canonical, fully defaulted market record
type Market struct {
	Question   string  `json:"question"`
	Identifier string  `json:"identifier"` // Ticker or event ticker, empty if absent
	Price      float64 `json:"price"`      // Probability-like price, default 0.5
	Payout     float64 `json:"payout"`     // Settlement value if correct, default 1.0
	Volume     float64 `json:"volume"`     // Non-negative trading activity, default 0
}

// ScoredMarket pairs a canonical market with its alpha score
type ScoredMarket struct {
	Market Market  `json:"market"`
	Score  float64 `json:"score"`
}

// Pick is a selected market together with its research summary
type Pick struct {
	ScoredMarket
	Research Research `json:"research"`
}
