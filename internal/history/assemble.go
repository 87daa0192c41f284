package history

import (
	"sort"

	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// Assemble merges per-chunk results into one series body.
//
// Candles are taken in chunk order, those outside [window.Start, window.End] are dropped,
// the first candle seen for each timestamp wins, and the result is sorted ascending.
// Assemble does not modify its input.
func Assemble(chunks [][]models.Candle, window models.TimeWindow) []models.Candle {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}

	seen := make(map[int64]struct{}, total)
	out := make([]models.Candle, 0, total)
	for _, chunk := range chunks {
		for _, c := range chunk {
			if !window.Contains(c.Timestamp) {
				continue
			}
			key := c.Timestamp.Unix()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
