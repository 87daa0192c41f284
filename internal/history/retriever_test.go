package history

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/exchange"
	"github.com/johnayoung/go-crypto-candles/internal/gaps"
	"github.com/johnayoung/go-crypto-candles/internal/metrics"
	"github.com/johnayoung/go-crypto-candles/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	known map[string]bool
	calls int
}

func (f *fakeValidator) Validate(ctx context.Context, ticker string) error {
	f.calls++
	if !f.known[ticker] {
		return &cerrors.UnknownTickerError{Ticker: ticker}
	}
	return nil
}

// fakeSource serves the newest req.Limit buckets of each requested window in descending
// order the way the exchange does. respond can override a call.
type fakeSource struct {
	requests []exchange.ChunkRequest
	respond  func(call int, req exchange.ChunkRequest) ([]models.Candle, error)
}

func (f *fakeSource) FetchCandles(ctx context.Context, req exchange.ChunkRequest) ([]models.Candle, error) {
	f.requests = append(f.requests, req)
	if f.respond != nil {
		return f.respond(len(f.requests), req)
	}
	return bucketsFor(req), nil
}

func bucketsFor(req exchange.ChunkRequest) []models.Candle {
	var out []models.Candle
	for ts := req.Window.End; !ts.Before(req.Window.Start) && len(out) < req.Limit; ts = ts.Add(-req.Granularity.Duration()) {
		out = append(out, models.Candle{
			Timestamp: ts,
			Low:       decimal.NewFromInt(1),
			High:      decimal.NewFromInt(3),
			Open:      decimal.NewFromInt(2),
			Close:     decimal.NewFromInt(2),
			Volume:    decimal.NewFromInt(10),
		})
	}
	return out
}

type harness struct {
	validator *fakeValidator
	source    *fakeSource
	pauses    []time.Duration
	recorder  *metrics.Recorder
	retriever *Retriever
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		validator: &fakeValidator{known: map[string]bool{"BTC-USD": true}},
		source:    &fakeSource{},
		recorder:  metrics.NewRecorder(),
	}
	pacer := NewPacer(DefaultMaxPause, func(d time.Duration) { h.pauses = append(h.pauses, d) })
	all := append([]Option{
		WithPacer(pacer),
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return base.Add(10*time.Hour + 30*time.Second) }),
	}, opts...)
	h.retriever = NewRetriever(h.validator, h.source, slog.New(slog.NewTextHandler(io.Discard, nil)), all...)
	return h
}

func assertSeriesBounded(t *testing.T, s *models.Series) {
	t.Helper()
	for i, c := range s.Candles {
		assert.False(t, c.Timestamp.Before(s.Window.Start))
		assert.False(t, c.Timestamp.After(s.Window.End))
		if i > 0 {
			assert.True(t, s.Candles[i-1].Timestamp.Before(c.Timestamp))
		}
	}
}

func TestRetrieve_SingleChunkHourly(t *testing.T) {
	h := newHarness(t)

	series, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 3600, "2024-01-01-00-00", "2024-01-01-10-00")
	require.NoError(t, err)

	require.Len(t, h.source.requests, 1)
	req := h.source.requests[0]
	assert.Equal(t, base, req.Window.Start)
	assert.Equal(t, base.Add(10*time.Hour), req.Window.End)
	assert.Equal(t, models.OneHour, req.Granularity)
	assert.Equal(t, 10, req.Limit)

	assert.Equal(t, "BTC-USD", series.Ticker)
	assert.Equal(t, models.OneHour, series.Granularity)
	assert.LessOrEqual(t, series.Len(), 10, "never more than the limit")
	assert.Equal(t, base.Add(10*time.Hour), series.Candles[series.Len()-1].Timestamp, "end bound is inclusive")
	assertSeriesBounded(t, series)
	assert.Empty(t, h.pauses, "no pause after the only chunk")
}

func TestRetrieve_TwoChunksByMinute(t *testing.T) {
	h := newHarness(t)

	series, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 60, "2024-01-01-00-00", "2024-01-01-10-00")
	require.NoError(t, err)

	require.Len(t, h.source.requests, 2)
	assert.Equal(t, base.Add(5*time.Hour), h.source.requests[0].Window.End)
	assert.Equal(t, base.Add(5*time.Hour), h.source.requests[1].Window.Start)
	assert.Equal(t, 300, h.source.requests[0].Limit)
	assert.Equal(t, 300, h.source.requests[1].Limit)

	assert.Equal(t, 600, series.Len())
	assertSeriesBounded(t, series)

	require.Len(t, h.pauses, 1)
	assert.LessOrEqual(t, h.pauses[0], DefaultMaxPause)

	assert.Equal(t, 2.0, h.recorder.Value(metrics.ChunksRequested))
	assert.Equal(t, 600.0, h.recorder.Value(metrics.CandlesReceived))
	assert.Equal(t, 600.0, h.recorder.Value(metrics.CandlesReturned))
	assert.Equal(t, 600.0, h.recorder.Value(metrics.SeriesLength))
}

func TestRetrieve_EmptyChunkContinues(t *testing.T) {
	h := newHarness(t)
	h.source.respond = func(call int, req exchange.ChunkRequest) ([]models.Candle, error) {
		if call == 2 {
			return []models.Candle{}, nil
		}
		return bucketsFor(req), nil
	}

	series, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 60, "2024-01-01-00-00", "2024-01-01-15-00")
	require.NoError(t, err)
	require.Len(t, h.source.requests, 3)
	assert.Len(t, h.pauses, 2, "pause follows empty chunks too")

	for _, c := range series.Candles {
		inSecond := c.Timestamp.After(base.Add(5*time.Hour)) && c.Timestamp.Before(base.Add(10*time.Hour))
		assert.False(t, inSecond, "no candles for the empty span")
	}
	assert.Equal(t, 1.0, h.recorder.Value(metrics.ChunksEmpty))
	assertSeriesBounded(t, series)
}

func TestRetrieve_FailureAbortsAndDiscards(t *testing.T) {
	h := newHarness(t)
	h.source.respond = func(call int, req exchange.ChunkRequest) ([]models.Candle, error) {
		if call == 2 {
			return nil, cerrors.ClassifyStatus(404, "exchange", "fetch_candles", "/candles?start=x", `{"message":"not found"}`)
		}
		return bucketsFor(req), nil
	}

	series, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 60, "2024-01-01-00-00", "2024-01-01-15-00")
	require.Error(t, err)
	assert.Nil(t, series)
	assert.True(t, cerrors.IsRequestError(err))
	assert.Contains(t, err.Error(), "chunk 2 of 3")
	assert.Contains(t, err.Error(), "/candles?start=x")
	assert.Len(t, h.source.requests, 2, "no request after the failure")
	assert.Equal(t, 1.0, h.recorder.Value(metrics.RetrievalErrors))
}

func TestRetrieve_ConnectionAndUnknownFailures(t *testing.T) {
	for code, check := range map[int]func(error) bool{
		403: cerrors.IsConnectionError,
		500: cerrors.IsConnectionError,
		418: cerrors.IsUnknownError,
	} {
		h := newHarness(t)
		h.source.respond = func(call int, req exchange.ChunkRequest) ([]models.Candle, error) {
			return nil, cerrors.ClassifyStatus(code, "exchange", "fetch_candles", "/candles", "")
		}
		_, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 60, "2024-01-01-00-00", "2024-01-01-10-00")
		assert.True(t, check(err), "status %d: %v", code, err)
		assert.Len(t, h.source.requests, 1)
	}
}

func TestRetrieve_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name        string
		ticker      string
		granularity int
		start, end  string
		invalidSpan bool
	}{
		{name: "start equals end", ticker: "BTC-USD", granularity: 3600, start: "2024-01-01-00-00", end: "2024-01-01-00-00", invalidSpan: true},
		{name: "start after end", ticker: "BTC-USD", granularity: 3600, start: "2024-01-02-00-00", end: "2024-01-01-00-00", invalidSpan: true},
		{name: "malformed start", ticker: "BTC-USD", granularity: 3600, start: "2024/01/01", end: "2024-01-01-00-00"},
		{name: "malformed end", ticker: "BTC-USD", granularity: 3600, start: "2024-01-01-00-00", end: "tomorrow"},
		{name: "unsupported granularity", ticker: "BTC-USD", granularity: 120, start: "2024-01-01-00-00", end: "2024-01-02-00-00"},
		{name: "empty ticker", ticker: " ", granularity: 3600, start: "2024-01-01-00-00", end: "2024-01-02-00-00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.retriever.Retrieve(context.Background(), tt.ticker, tt.granularity, tt.start, tt.end)
			require.Error(t, err)
			assert.True(t, cerrors.IsValidationError(err))
			assert.Equal(t, tt.invalidSpan, cerrors.IsInvalidRange(err))
			assert.Zero(t, h.validator.calls, "catalog must not be consulted")
			assert.Empty(t, h.source.requests)
		})
	}
}

func TestRetrieve_UnknownTicker(t *testing.T) {
	h := newHarness(t)
	_, err := h.retriever.Retrieve(context.Background(), "FOO-BAR", 3600, "2024-01-01-00-00", "2024-01-01-10-00")
	assert.True(t, cerrors.IsUnknownTicker(err))
	assert.Equal(t, 1, h.validator.calls)
	assert.Empty(t, h.source.requests)
}

func TestRetrieve_EndDefaultsToNow(t *testing.T) {
	h := newHarness(t)
	series, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 3600, "2024-01-01-00-00", "")
	require.NoError(t, err)
	assert.Equal(t, base.Add(10*time.Hour), series.Window.End, "now is truncated to the minute")
}

func TestRetrieve_IndependentCalls(t *testing.T) {
	h := newHarness(t)
	first, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 3600, "2024-01-01-00-00", "2024-01-01-05-00")
	require.NoError(t, err)
	second, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 3600, "2024-01-01-00-00", "2024-01-01-05-00")
	require.NoError(t, err)

	assert.Equal(t, first.Candles, second.Candles)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, h.validator.calls)
}

func TestRetrieve_LogsTraceAndGaps(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHarness(t)
	h.source.respond = func(call int, req exchange.ChunkRequest) ([]models.Candle, error) {
		all := bucketsFor(req)
		return all[:len(all)-3], nil
	}
	h.retriever = NewRetriever(h.validator, h.source, log,
		WithPacer(NewPacer(0, nil)),
		WithGapDetector(gaps.NewDetector(log)))

	_, err := h.retriever.Retrieve(context.Background(), "BTC-USD", 3600, "2024-01-01-00-00", "2024-01-01-10-00")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"trace_id"`)
	assert.Contains(t, out, `"ticker":"BTC-USD"`)
	assert.Contains(t, out, "series has missing buckets")
	assert.True(t, strings.Contains(out, `"msg":"returning data"`))
	assert.NotNil(t, h.retriever.Recorder())
}
