package models

// Series is an assembled candle history: strictly increasing unique timestamps, all
// inside Window.
type Series struct {
	Ticker      string      `json:"ticker"`
	Granularity Granularity `json:"granularity"`
	Window      TimeWindow  `json:"window"`
	Candles     []Candle    `json:"candles"`
}

// Len returns the number of candles.
func (s *Series) Len() int {
	return len(s.Candles)
}

// Empty reports whether the series holds no candles.
func (s *Series) Empty() bool {
	return len(s.Candles) == 0
}
