// Package gaps finds runs of missing candle buckets in an assembled series. Exchanges omit
// buckets with no trading activity, so a gap is informational rather than an error.
package gaps

import (
	"log/slog"
	"sort"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// Detector identifies missing periods in candle sequences. It is stateless and safe for
// concurrent use.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a gap detector.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger.With("component", "gaps")}
}

// DetectSeries reports the gaps in s across its own window and granularity.
func (d *Detector) DetectSeries(s *models.Series) []models.Gap {
	if s == nil {
		return nil
	}
	return d.Detect(s.Ticker, s.Candles, s.Window, s.Granularity)
}

// Detect compares the buckets expected in window against the candles present.
//
// Expected buckets start at the first multiple of g at or after window.Start and run
// while strictly before window.End, matching how the exchange aligns candle starts.
func (d *Detector) Detect(ticker string, candles []models.Candle, window models.TimeWindow, g models.Granularity) []models.Gap {
	step := g.Duration()
	if step <= 0 || !window.Start.Before(window.End) {
		return nil
	}

	existing := make(map[int64]bool, len(candles))
	for _, c := range candles {
		existing[c.Timestamp.Unix()] = true
	}

	var gaps []models.Gap
	current := alignUp(window.Start, step)
	for current.Before(window.End) {
		if existing[current.Unix()] {
			current = current.Add(step)
			continue
		}

		gapStart := current
		gapEnd := current.Add(step)
		missing := 1
		for gapEnd.Before(window.End) && !existing[gapEnd.Unix()] {
			gapEnd = gapEnd.Add(step)
			missing++
		}

		gaps = append(gaps, models.Gap{
			Ticker:      ticker,
			Granularity: g,
			Start:       gapStart,
			End:         gapEnd,
			Missing:     missing,
		})
		current = gapEnd
	}

	if len(gaps) > 0 {
		d.logger.Debug("gaps detected", "ticker", ticker, "granularity", g.Token(), "gaps", len(gaps))
	}
	return gaps
}

// DetectInSequence reports gaps between consecutive candles only, ignoring the edges of
// any window. candles need not be sorted.
func (d *Detector) DetectInSequence(ticker string, candles []models.Candle, g models.Granularity) []models.Gap {
	step := g.Duration()
	if len(candles) < 2 || step <= 0 {
		return nil
	}

	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var gaps []models.Gap
	for i := 0; i < len(sorted)-1; i++ {
		expectedNext := sorted[i].Timestamp.Add(step)
		next := sorted[i+1].Timestamp
		if next.After(expectedNext) {
			gaps = append(gaps, models.Gap{
				Ticker:      ticker,
				Granularity: g,
				Start:       expectedNext,
				End:         next,
				Missing:     int(next.Sub(expectedNext) / step),
			})
		}
	}
	return gaps
}

// Missing returns the total number of missing buckets across gaps.
func Missing(gaps []models.Gap) int {
	total := 0
	for _, g := range gaps {
		total += g.Missing
	}
	return total
}

func alignUp(t time.Time, step time.Duration) time.Time {
	t = t.UTC()
	secs := int64(step / time.Second)
	unix := t.Unix()
	if rem := unix % secs; rem != 0 || t.Nanosecond() != 0 {
		unix += secs - rem
	}
	return time.Unix(unix, 0).UTC()
}
