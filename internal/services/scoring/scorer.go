// Package scoring computes the alpha score and selects the top markets.
package scoring

import (
	"math"
	"sort"

	"github.com/ternarybob/alphapicks/internal/models"
)

// Epsilon keeps the denominator away from zero as price approaches 0
const Epsilon = 0.01

// DefaultTopK is the number of markets selected when no K is configured
const DefaultTopK = 3

// Score returns (payout * volume) / (price + Epsilon).
// Increasing in payout and volume, decreasing in price. A product too large
// to represent saturates at math.MaxFloat64 so the score stays finite.
func Score(m models.Market) float64 {
	score := (m.Payout * m.Volume) / (m.Price + Epsilon)
	if math.IsInf(score, 1) {
		return math.MaxFloat64
	}
	return score
}

// ScoreAll scores every market, preserving input order
func ScoreAll(markets []models.Market) []models.ScoredMarket {
	scored := make([]models.ScoredMarket, 0, len(markets))
	for _, m := range markets {
		scored = append(scored, models.ScoredMarket{Market: m, Score: Score(m)})
	}
	return scored
}

// Select returns the k highest-scoring markets, highest first.
// Equal scores keep their input order. Returns fewer than k entries when the
// input is shorter, and an empty slice for empty input or k <= 0.
func Select(markets []models.Market, k int) []models.ScoredMarket {
	scored := ScoreAll(markets)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k <= 0 {
		return []models.ScoredMarket{}
	}
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
