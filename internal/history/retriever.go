package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/dates"
	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/exchange"
	"github.com/johnayoung/go-crypto-candles/internal/gaps"
	"github.com/johnayoung/go-crypto-candles/internal/logger"
	"github.com/johnayoung/go-crypto-candles/internal/metrics"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// DefaultMaxPause is the upper bound of the pause between chunk requests.
const DefaultMaxPause = 2 * time.Second

// TickerValidator confirms a ticker is listed on the exchange.
type TickerValidator interface {
	Validate(ctx context.Context, ticker string) error
}

// Retriever assembles historical candle series. Each Retrieve call is independent: all
// fetched data is held locally until assembly.
type Retriever struct {
	validator TickerValidator
	source    exchange.CandleSource
	pacer     *Pacer
	clock     dates.Clock
	recorder  *metrics.Recorder
	detector  *gaps.Detector
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithPacer replaces the default inter-chunk pacer.
func WithPacer(p *Pacer) Option {
	return func(r *Retriever) { r.pacer = p }
}

// WithClock replaces time.Now when the end date is omitted.
func WithClock(clock dates.Clock) Option {
	return func(r *Retriever) { r.clock = clock }
}

// WithRecorder records retrieval metrics into rec.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Retriever) { r.recorder = rec }
}

// WithGapDetector logs missing buckets found in each assembled series.
func WithGapDetector(d *gaps.Detector) Option {
	return func(r *Retriever) { r.detector = d }
}

// NewRetriever creates a Retriever. By default it pauses up to DefaultMaxPause between
// chunks and records metrics into a private recorder.
func NewRetriever(validator TickerValidator, source exchange.CandleSource, log *slog.Logger, opts ...Option) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	r := &Retriever{
		validator: validator,
		source:    source,
		pacer:     NewPacer(DefaultMaxPause, nil),
		clock:     time.Now,
		recorder:  metrics.NewRecorder(),
		logger:    log.With("component", "history"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recorder returns the metrics recorder used by r.
func (r *Retriever) Recorder() *metrics.Recorder {
	return r.recorder
}

// Retrieve returns every candle for ticker at granularity seconds between start and end,
// both given as YYYY-MM-DD-HH-MM in UTC. An empty end means now.
//
// Inputs are validated before any network call. The ticker is then checked against the
// product catalog, the range is planned and each chunk fetched in order. The first
// failure aborts the retrieval.
func (r *Retriever) Retrieve(ctx context.Context, ticker string, granularity int, start, end string) (*models.Series, error) {
	began := time.Now()
	ticker = strings.TrimSpace(ticker)

	ctx = logger.EnsureTraceID(ctx)
	ctx = logger.WithOperation(logger.WithGranularity(logger.WithTicker(ctx, ticker), granularity), "retrieve")
	log := logger.ForContext(ctx, r.logger)

	series, err := r.retrieve(ctx, log, ticker, granularity, start, end)
	r.recorder.RecordDuration(metrics.RetrievalDuration, time.Since(began), "Wall time of the last retrieval", nil)
	if err != nil {
		r.recorder.RecordError(metrics.RetrievalErrors, "Failed retrievals",
			map[string]string{"type": string(cerrors.GetErrorType(err))})
		log.Error("retrieval failed", "error", err, "error_type", cerrors.GetErrorType(err))
		return nil, err
	}
	return series, nil
}

func (r *Retriever) retrieve(ctx context.Context, log *slog.Logger, ticker string, granularity int, start, end string) (*models.Series, error) {
	if ticker == "" {
		return nil, &cerrors.ValidationError{Field: "ticker", Reason: cerrors.ReasonTicker, Message: "ticker cannot be empty"}
	}

	g, err := models.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}

	startAt, err := dates.Parse("start", start)
	if err != nil {
		return nil, err
	}
	endAt, err := dates.ParseOrNow("end", end, r.clock)
	if err != nil {
		return nil, err
	}
	if dates.Compare(startAt, endAt) >= 0 {
		return nil, cerrors.NewInvalidRangeError(fmt.Sprintf("start %s must be before end %s",
			dates.Format(startAt), dates.Format(endAt)))
	}
	window, err := models.NewTimeWindow(startAt, endAt)
	if err != nil {
		return nil, err
	}

	if err := r.validator.Validate(ctx, ticker); err != nil {
		return nil, err
	}

	plan, expected, err := Plan(window, g)
	if err != nil {
		return nil, err
	}

	log.Info("retrieving candles",
		"start", dates.ISO(startAt),
		"end", dates.ISO(endAt),
		"expected", expected,
		"chunks", len(plan))

	results, err := r.fetchChunks(ctx, log, ticker, g, plan)
	if err != nil {
		return nil, err
	}

	series := &models.Series{
		Ticker:      ticker,
		Granularity: g,
		Window:      window,
		Candles:     Assemble(results, window),
	}
	r.recorder.RecordCounter(metrics.CandlesReturned, float64(series.Len()), "Candles returned after assembly", nil)
	r.recorder.RecordGauge(metrics.SeriesLength, float64(series.Len()), "Candles in the last assembled series", nil)

	if r.detector != nil {
		if found := r.detector.DetectSeries(series); len(found) > 0 {
			log.Info("series has missing buckets", "gaps", len(found), "missing", gaps.Missing(found))
		}
	}

	log.Info("returning data", "candles", series.Len())
	return series, nil
}

// fetchChunks requests each chunk in order. Results are returned only when every chunk
// succeeded.
func (r *Retriever) fetchChunks(ctx context.Context, log *slog.Logger, ticker string, g models.Granularity, plan []Chunk) ([][]models.Candle, error) {
	results := make([][]models.Candle, 0, len(plan))

	for i, chunk := range plan {
		if i > 0 {
			if d := r.pacer.Pause(); d > 0 {
				log.Debug("paused between chunks", "pause", d)
			}
		}

		log.Debug("fetching chunk",
			"chunk", i+1,
			"of", len(plan),
			"start", dates.ISO(chunk.Window.Start),
			"end", dates.ISO(chunk.Window.End),
			"limit", chunk.Limit)

		r.recorder.RecordCounter(metrics.ChunksRequested, 1, "Chunk requests issued", nil)
		candles, err := r.source.FetchCandles(ctx, exchange.ChunkRequest{
			Ticker:      ticker,
			Window:      chunk.Window,
			Granularity: g,
			Limit:       chunk.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d %s: %w", i+1, len(plan), chunk.Window, err)
		}

		if len(candles) == 0 {
			r.recorder.RecordCounter(metrics.ChunksEmpty, 1, "Chunks with no published candles", nil)
			log.Info("no candles published for chunk",
				"chunk", i+1,
				"start", dates.ISO(chunk.Window.Start),
				"end", dates.ISO(chunk.Window.End))
		}
		r.recorder.RecordCounter(metrics.CandlesReceived, float64(len(candles)), "Candles received from the exchange", nil)

		results = append(results, candles)
	}

	return results, nil
}
