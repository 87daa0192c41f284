package models

import (
	"fmt"
	"time"
)

// Gap is a run of consecutive buckets missing from a series. Start is the first
// missing bucket; End is the first bucket after the run (or the window end).
type Gap struct {
	Ticker      string      `json:"ticker"`
	Granularity Granularity `json:"granularity"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Missing     int         `json:"missing"`
}

// Duration returns the span of the gap.
func (g Gap) Duration() time.Duration {
	return g.End.Sub(g.Start)
}

// String implements fmt.Stringer.
func (g Gap) String() string {
	return fmt.Sprintf("%s %s gap from %s to %s (%d missing)", g.Ticker, g.Granularity,
		g.Start.Format(time.RFC3339), g.End.Format(time.RFC3339), g.Missing)
}
