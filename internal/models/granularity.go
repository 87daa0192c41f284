package models

import (
	"fmt"
	"sort"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
)

// MaxCandlesPerRequest is the per-call record cap imposed by the candles endpoint.
const MaxCandlesPerRequest = 300

// Granularity is the duration of one candle bucket, in seconds.
type Granularity int

const (
	OneMinute     Granularity = 60
	FiveMinute    Granularity = 300
	FifteenMinute Granularity = 900
	ThirtyMinute  Granularity = 1800
	OneHour       Granularity = 3600
	TwoHour       Granularity = 7200
	SixHour       Granularity = 21600
	OneDay        Granularity = 86400
)

// granularityTokens maps each supported granularity to the symbolic name the API expects.
// It is never mutated after initialization.
var granularityTokens = map[Granularity]string{
	OneMinute:     "ONE_MINUTE",
	FiveMinute:    "FIVE_MINUTE",
	FifteenMinute: "FIFTEEN_MINUTE",
	ThirtyMinute:  "THIRTY_MINUTE",
	OneHour:       "ONE_HOUR",
	TwoHour:       "TWO_HOUR",
	SixHour:       "SIX_HOUR",
	OneDay:        "ONE_DAY",
}

// ParseGranularity validates a granularity given in seconds.
func ParseGranularity(seconds int) (Granularity, error) {
	g := Granularity(seconds)
	if !g.Valid() {
		return 0, cerrors.NewGranularityError(fmt.Sprintf("granularity must be one of %v seconds, got %d", Granularities(), seconds))
	}
	return g, nil
}

// Granularities returns the supported granularities in ascending order.
func Granularities() []Granularity {
	out := make([]Granularity, 0, len(granularityTokens))
	for g := range granularityTokens {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	_, ok := granularityTokens[g]
	return ok
}

// Token returns the symbolic API name, or an empty string for unsupported values.
func (g Granularity) Token() string {
	return granularityTokens[g]
}

// Seconds returns the bucket size in seconds.
func (g Granularity) Seconds() int {
	return int(g)
}

// Duration returns the bucket size as a time.Duration.
func (g Granularity) Duration() time.Duration {
	return time.Duration(g) * time.Second
}

// String implements fmt.Stringer.
func (g Granularity) String() string {
	if token := g.Token(); token != "" {
		return token
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}
