// Package history retrieves historical candles for arbitrary time ranges.
//
// A range is planned into request-sized chunks, the chunks are fetched one at a time in
// ascending order with a short randomized pause between them, and the results are
// assembled into a single sorted, de-duplicated Series. Any failure aborts the whole
// retrieval; partial results are never returned.
package history

import (
	"fmt"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// Chunk is one planned request.
type Chunk struct {
	Index  int               `json:"index"`
	Window models.TimeWindow `json:"window"`
	Limit  int               `json:"limit"`
}

// Plan partitions window into chunks of at most MaxCandlesPerRequest buckets each.
//
// When the window implies no more than MaxCandlesPerRequest candles a single chunk covers
// it. Otherwise consecutive chunks of exactly MaxCandlesPerRequest*g are emitted, the
// last one truncated to window.End. A chunk that would start at window.End is not
// emitted. The returned count is ceil((End-Start)/g).
func Plan(window models.TimeWindow, g models.Granularity) ([]Chunk, int, error) {
	if !window.Start.Before(window.End) {
		return nil, 0, cerrors.NewInvalidRangeError(fmt.Sprintf("start %s must be before end %s",
			window.Start.UTC().Format(time.RFC3339), window.End.UTC().Format(time.RFC3339)))
	}
	if !g.Valid() {
		return nil, 0, cerrors.NewGranularityError(fmt.Sprintf("unsupported granularity %d", int(g)))
	}

	expected := window.ExpectedCandles(g)
	if expected <= models.MaxCandlesPerRequest {
		return []Chunk{{Index: 0, Window: window, Limit: expected}}, expected, nil
	}

	span := time.Duration(models.MaxCandlesPerRequest) * g.Duration()
	chunks := make([]Chunk, 0, expected/models.MaxCandlesPerRequest+1)
	for start := window.Start; start.Before(window.End); start = start.Add(span) {
		end := start.Add(span)
		if end.After(window.End) {
			end = window.End
		}
		sub := models.TimeWindow{Start: start, End: end}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Window: sub,
			Limit:  min(sub.ExpectedCandles(g), expected),
		})
	}
	return chunks, expected, nil
}
