package markets

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/alphapicks/internal/models"
)

func TestNormalize_EmptyRecordUsesDefaults(t *testing.T) {
	market := Normalize(models.RawMarket{})

	assert.Equal(t, "Unknown", market.Question)
	assert.Equal(t, "", market.Identifier)
	assert.Equal(t, 0.5, market.Price)
	assert.Equal(t, 1.0, market.Payout)
	assert.Equal(t, 0.0, market.Volume)
}

func TestNormalize_NilRecord(t *testing.T) {
	market := Normalize(nil)
	assert.Equal(t, "Unknown", market.Question)
	assert.Equal(t, 0.5, market.Price)
}

func TestNormalize_KalshiRecord(t *testing.T) {
	raw := models.RawMarket{
		"title":        "Will BTC close above $100k?",
		"ticker":       "KXBTC-25DEC31-100K",
		"event_ticker": "KXBTC-25DEC31",
		"last_price":   0.42,
		"volume":       float64(1500),
	}

	market := Normalize(raw)

	assert.Equal(t, "Will BTC close above $100k?", market.Question)
	assert.Equal(t, "KXBTC-25DEC31-100K", market.Identifier)
	assert.Equal(t, 0.42, market.Price)
	assert.Equal(t, 1.0, market.Payout)
	assert.Equal(t, 1500.0, market.Volume)
}

func TestNormalize_CandidatePriority(t *testing.T) {
	tests := []struct {
		name  string
		raw   models.RawMarket
		check func(t *testing.T, m models.Market)
	}{
		{
			name: "last_price wins over current_price",
			raw:  models.RawMarket{"last_price": 0.3, "current_price": 0.9},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, 0.3, m.Price)
			},
		},
		{
			name: "current_price used when last_price absent",
			raw:  models.RawMarket{"current_price": 0.9},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, 0.9, m.Price)
			},
		},
		{
			name: "mistyped last_price falls through to current_price",
			raw:  models.RawMarket{"last_price": true, "current_price": 0.25},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, 0.25, m.Price)
			},
		},
		{
			name: "event_ticker used when ticker absent",
			raw:  models.RawMarket{"event_ticker": "FED-25MAR"},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, "FED-25MAR", m.Identifier)
			},
		},
		{
			name: "empty ticker falls through to event_ticker",
			raw:  models.RawMarket{"ticker": "  ", "event_ticker": "FED-25MAR"},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, "FED-25MAR", m.Identifier)
			},
		},
		{
			name: "question key used when title absent",
			raw:  models.RawMarket{"question": "Rain in NYC tomorrow?"},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, "Rain in NYC tomorrow?", m.Question)
			},
		},
		{
			name: "non-string title defaults to Unknown",
			raw:  models.RawMarket{"title": 12},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, "Unknown", m.Question)
			},
		},
		{
			name: "settlement_value used as payout",
			raw:  models.RawMarket{"settlement_value": 100},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, 100.0, m.Payout)
			},
		},
		{
			name: "volume_24h used when volume absent",
			raw:  models.RawMarket{"volume_24h": int64(42)},
			check: func(t *testing.T, m models.Market) {
				assert.Equal(t, 42.0, m.Volume)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(tt.raw))
		})
	}
}

func TestNormalize_ValueCoercion(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected float64
	}{
		{"float64", 0.75, 0.75},
		{"int", 3, 3},
		{"int64", int64(7), 7},
		{"json number", json.Number("0.33"), 0.33},
		{"numeric string", " 0.61 ", 0.61},
		{"non numeric string", "n/a", 0.5},
		{"nil", nil, 0.5},
		{"bool", false, 0.5},
		{"nan", math.NaN(), 0.5},
		{"inf", math.Inf(1), 0.5},
		{"negative", -0.2, 0.5},
		{"slice", []interface{}{0.1}, 0.5},
		{"empty string", "  ", 0.5},
		{"int32", int32(2), 2},
		{"uint8", uint8(9), 9},
		{"float32", float32(0.25), 0.25},
		{"map", map[string]interface{}{"value": 0.1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := Normalize(models.RawMarket{"last_price": tt.value})
			assert.InDelta(t, tt.expected, market.Price, 1e-9)
		})
	}
}

func TestNormalize_TextualIdentifiers(t *testing.T) {
	market := Normalize(models.RawMarket{
		"title":  json.Number("2026"),
		"ticker": false,
		"slug":   " fed-march ",
	})

	assert.Equal(t, "2026", market.Question)
	assert.Equal(t, "fed-march", market.Identifier)
}

func TestNormalize_NegativeVolumeClampsToZero(t *testing.T) {
	market := Normalize(models.RawMarket{"volume": -50, "volume_24h": 10})
	assert.Equal(t, 0.0, market.Volume)
}

func TestNormalize_FieldsAreIndependent(t *testing.T) {
	// A broken price must not disturb the other fields
	market := Normalize(models.RawMarket{"title": "A", "last_price": "bad", "volume": 10})

	assert.Equal(t, "A", market.Question)
	assert.Equal(t, 0.5, market.Price)
	assert.Equal(t, 10.0, market.Volume)
}

func TestNormalize_DecodedJSON(t *testing.T) {
	payload := `{"title":"Decoded","ticker":"DEC-1","last_price":20,"volume":1000,"unexpected":{"nested":true}}`

	var raw models.RawMarket
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	market := Normalize(raw)
	assert.Equal(t, "Decoded", market.Question)
	assert.Equal(t, "DEC-1", market.Identifier)
	assert.Equal(t, 20.0, market.Price)
	assert.Equal(t, 1000.0, market.Volume)
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	raws := []models.RawMarket{
		{"title": "first"},
		{"title": "second"},
		{},
	}

	markets := NormalizeAll(raws)
	require.Len(t, markets, 3)
	assert.Equal(t, "first", markets[0].Question)
	assert.Equal(t, "second", markets[1].Question)
	assert.Equal(t, "Unknown", markets[2].Question)
}

func TestNormalizeAll_Empty(t *testing.T) {
	markets := NormalizeAll(nil)
	assert.NotNil(t, markets)
	assert.Empty(t, markets)
}

func TestLookups_CoverEveryField(t *testing.T) {
	fields := make(map[string]bool)
	for _, lookup := range Lookups() {
		assert.NotEmpty(t, lookup.Candidates, lookup.Field)
		fields[lookup.Field] = true
	}
	for _, field := range []string{"question", "identifier", "price", "payout", "volume"} {
		assert.True(t, fields[field], "missing lookup for %s", field)
	}
}
