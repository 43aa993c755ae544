// Package markets maps raw, schema-variable market records onto the canonical
// models.Market using a prioritized field lookup table.
package markets

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/ternarybob/alphapicks/internal/models"
)

// UnknownQuestion is used when a record carries no usable title
const UnknownQuestion = "Unknown"

// Canonical field defaults
const (
	DefaultPrice  = 0.5
	DefaultPayout = 1.0
	DefaultVolume = 0.0
)

// FieldLookup lists the raw keys consulted for one canonical field, in priority order
type FieldLookup struct {
	Field      string
	Candidates []string
}

// Lookup table shared by every normalization. First present, convertible value wins.
var (
	QuestionLookup   = FieldLookup{Field: "question", Candidates: []string{"title", "question", "subtitle"}}
	IdentifierLookup = FieldLookup{Field: "identifier", Candidates: []string{"ticker", "event_ticker", "slug"}}
	PriceLookup      = FieldLookup{Field: "price", Candidates: []string{"last_price", "current_price", "price"}}
	PayoutLookup     = FieldLookup{Field: "payout", Candidates: []string{"payout", "settlement_value"}}
	VolumeLookup     = FieldLookup{Field: "volume", Candidates: []string{"volume", "volume_24h"}}
)

// Lookups returns the full normalization table
func Lookups() []FieldLookup {
	return []FieldLookup{QuestionLookup, IdentifierLookup, PriceLookup, PayoutLookup, VolumeLookup}
}

// Normalize converts a raw record into a canonical market. It never fails:
// each field resolves on its own and falls back to its default.
func Normalize(raw models.RawMarket) models.Market {
	market := models.Market{
		Question:   UnknownQuestion,
		Identifier: "",
		Price:      DefaultPrice,
		Payout:     DefaultPayout,
		Volume:     DefaultVolume,
	}

	if v, ok := resolveString(raw, QuestionLookup); ok {
		market.Question = v
	}
	if v, ok := resolveString(raw, IdentifierLookup); ok {
		market.Identifier = v
	}
	if v, ok := resolveFloat(raw, PriceLookup, nonNegative); ok {
		market.Price = v
	}
	if v, ok := resolveFloat(raw, PayoutLookup, nonNegative); ok {
		market.Payout = v
	}
	// Negative volume clamps to zero rather than falling through to another key
	if v, ok := resolveFloat(raw, VolumeLookup, nil); ok && v > 0 {
		market.Volume = v
	}

	return market
}

// NormalizeAll normalizes every record, preserving input order
func NormalizeAll(raws []models.RawMarket) []models.Market {
	markets := make([]models.Market, 0, len(raws))
	for _, raw := range raws {
		markets = append(markets, Normalize(raw))
	}
	return markets
}

func resolveString(raw models.RawMarket, lookup FieldLookup) (string, bool) {
	for _, key := range lookup.Candidates {
		value, present := raw[key]
		if !present {
			continue
		}
		if s, ok := toString(value); ok {
			return s, true
		}
	}
	return "", false
}

// resolveFloat returns the first candidate that converts to a finite number
// and, when accept is set, passes it.
func resolveFloat(raw models.RawMarket, lookup FieldLookup, accept func(float64) bool) (float64, bool) {
	for _, key := range lookup.Candidates {
		value, present := raw[key]
		if !present {
			continue
		}
		f, ok := toFloat(value)
		if !ok {
			continue
		}
		if accept != nil && !accept(f) {
			continue
		}
		return f, true
	}
	return 0, false
}

func nonNegative(f float64) bool {
	return f >= 0
}

// toString accepts textual values only; numbers and bools are not titles.
func toString(value interface{}) (string, bool) {
	switch value.(type) {
	case string, json.Number, fmt.Stringer:
	default:
		return "", false
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// toFloat converts numbers, json.Number and numeric strings. Bools and nil
// count as absent, as do NaN and Inf.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		value = v
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
