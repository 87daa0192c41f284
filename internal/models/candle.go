// Package models provides the data structures for Coinbase market data: candles,
// granularities, time windows, assembled series, products and live quotes.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one OHLCV bucket of a ticker's price history.
// Candles are immutable once created and keyed by Timestamp within a series.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Low       decimal.Decimal `json:"low"`
	High      decimal.Decimal `json:"high"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// ValidationError represents a candle validation error with specific field context.
type ValidationError struct {
	Field   string // Field is the name of the field that failed validation
	Message string // Message explains the validation failure
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// NewCandle creates a validated Candle. The timestamp is normalized to UTC with
// second precision.
func NewCandle(timestamp time.Time, low, high, open, close, volume decimal.Decimal) (*Candle, error) {
	candle := &Candle{
		Timestamp: timestamp.UTC().Truncate(time.Second),
		Low:       low,
		High:      high,
		Open:      open,
		Close:     close,
		Volume:    volume,
	}

	if err := candle.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create candle: %w", err)
	}

	return candle, nil
}

// NewCandleFromStrings parses decimal strings in wire order (low, high, open, close, volume).
func NewCandleFromStrings(timestamp time.Time, low, high, open, close, volume string) (*Candle, error) {
	values := make([]decimal.Decimal, 0, 5)
	for i, raw := range []string{low, high, open, close, volume} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, &ValidationError{Field: wireFields[i], Message: fmt.Sprintf("invalid decimal %q: %v", raw, err)}
		}
		values = append(values, d)
	}
	return NewCandle(timestamp, values[0], values[1], values[2], values[3], values[4])
}

var wireFields = [...]string{"low", "high", "open", "close", "volume"}

// Validate checks the timestamp is set and every value is non-negative.
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp cannot be zero"}
	}

	for i, v := range []decimal.Decimal{c.Low, c.High, c.Open, c.Close, c.Volume} {
		if v.IsNegative() {
			return &ValidationError{Field: wireFields[i], Message: fmt.Sprintf("%s must be non-negative, got %s", wireFields[i], v)}
		}
	}

	if c.High.LessThan(c.Low) {
		return &ValidationError{
			Field:   "high",
			Message: fmt.Sprintf("high (%s) must be greater than or equal to low (%s)", c.High, c.Low),
		}
	}

	return nil
}

// String returns a human-readable representation of the candle.
func (c *Candle) String() string {
	return fmt.Sprintf("Candle{Timestamp: %s, L: %s, H: %s, O: %s, C: %s, V: %s}",
		c.Timestamp.Format(time.RFC3339), c.Low, c.High, c.Open, c.Close, c.Volume)
}
