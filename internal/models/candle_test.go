package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewCandleFromStrings(t *testing.T) {
	tests := []struct {
		name       string
		low        string
		high       string
		open       string
		close      string
		volume     string
		errorField string
	}{
		{name: "valid_bullish_candle", low: "99.25", high: "105.50", open: "100.00", close: "104.00", volume: "1500.75"},
		{name: "valid_zero_volume", low: "99.50", high: "100.50", open: "100.00", close: "100.25", volume: "0"},
		{name: "valid_high_precision", low: "99.111111111", high: "100.987654321", open: "100.123456789", close: "100.555555555", volume: "1234.567890123"},
		{name: "negative_volume", low: "1", high: "2", open: "1", close: "2", volume: "-1", errorField: "volume"},
		{name: "negative_low", low: "-1", high: "2", open: "1", close: "2", volume: "1", errorField: "low"},
		{name: "high_below_low", low: "5", high: "4", open: "4", close: "5", volume: "1", errorField: "high"},
		{name: "malformed_open", low: "1", high: "2", open: "abc", close: "2", volume: "1", errorField: "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candle, err := NewCandleFromStrings(testTime, tt.low, tt.high, tt.open, tt.close, tt.volume)
			if tt.errorField == "" {
				require.NoError(t, err)
				assert.Equal(t, testTime, candle.Timestamp)
				assert.True(t, decimal.RequireFromString(tt.open).Equal(candle.Open))
				assert.True(t, decimal.RequireFromString(tt.volume).Equal(candle.Volume))
				return
			}

			require.Error(t, err)
			assert.Nil(t, candle)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.errorField, ve.Field)
		})
	}
}

func TestNewCandleNormalizesTimestamp(t *testing.T) {
	local := time.Date(2024, 1, 1, 13, 0, 0, 500, time.FixedZone("CET", 3600))
	candle, err := NewCandle(local, decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, testTime, candle.Timestamp)
	assert.Equal(t, time.UTC, candle.Timestamp.Location())
}

func TestCandleZeroTimestamp(t *testing.T) {
	_, err := NewCandle(time.Time{}, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "timestamp", ve.Field)
}

func TestCandleString(t *testing.T) {
	candle, err := NewCandleFromStrings(testTime, "90", "120", "100", "111", "5")
	require.NoError(t, err)
	assert.Contains(t, candle.String(), "2024-01-01T12:00:00Z")
}

func TestProductUnmarshalKeepsRaw(t *testing.T) {
	payload := `{"id":"BTC-USD","display_name":"BTC/USD","base_currency":"BTC","quote_currency":"USD",
		"status":"online","fx_stablecoin":false,"max_slippage_percentage":"0.02000000","auction_mode":false}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	assert.Equal(t, "BTC-USD", p.ID)
	assert.Equal(t, "0.02000000", p.MaxSlippagePercentage)
	assert.Contains(t, p.Raw, "auction_mode")
	assert.Equal(t, ProductSummary{
		ID:                    "BTC-USD",
		DisplayName:           "BTC/USD",
		MaxSlippagePercentage: "0.02000000",
		Status:                "online",
	}, p.Summary())
}

func TestQuoteSpread(t *testing.T) {
	q := Quote{Bid: decimal.RequireFromString("100.5"), Ask: decimal.RequireFromString("101")}
	assert.True(t, decimal.RequireFromString("0.5").Equal(q.Spread()))
}
