package models

import (
	"fmt"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
)

// TimeWindow is a time range with Start strictly before End.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow builds a window, failing with an invalid range error unless start < end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start.UTC(), End: end.UTC()}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate enforces Start < End.
func (w TimeWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return cerrors.NewInvalidRangeError(fmt.Sprintf("start %s must be before end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339)))
	}
	return nil
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t lies in [Start, End], both bounds inclusive.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ExpectedCandles returns ceil(|End - Start| / g).
func (w TimeWindow) ExpectedCandles(g Granularity) int {
	d := w.Duration()
	if d < 0 {
		d = -d
	}
	step := g.Duration()
	if step <= 0 {
		return 0
	}
	n := int(d / step)
	if d%step != 0 {
		n++
	}
	return n
}

// String implements fmt.Stringer.
func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
