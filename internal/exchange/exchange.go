// Package exchange defines the interfaces the retrieval engine needs from a market-data
// source and provides the Coinbase REST implementation.
//
// The interfaces are deliberately small so the history, catalog and quotes packages can
// each depend on exactly the capability they use and be tested against fakes.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// CandleSource retrieves one bounded window of historical candles.
type CandleSource interface {
	// FetchCandles issues exactly one request for req.Window.
	//
	// An empty slice with a nil error means the exchange published no candles for the
	// window; it is not a failure. Candles are returned in the order the exchange sent
	// them, which is unspecified. Failures are classified (request, connection or
	// unknown) and are never retried.
	FetchCandles(ctx context.Context, req ChunkRequest) ([]models.Candle, error)
}

// ProductCatalog lists the products an exchange offers.
type ProductCatalog interface {
	// ListProducts returns the full product catalog on every call.
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// QuoteSource returns a live bid/ask/last-trade snapshot.
type QuoteSource interface {
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
}

// Exchange combines every capability of a market-data source.
type Exchange interface {
	CandleSource
	ProductCatalog
	QuoteSource
	GetLimits() RateLimit
}

// ChunkRequest describes a single bounded candle request.
type ChunkRequest struct {
	Ticker      string             `json:"ticker"`
	Window      models.TimeWindow  `json:"window"`
	Granularity models.Granularity `json:"granularity"`
	Limit       int                `json:"limit"`
}

// Validate checks the request can be sent as-is.
func (r ChunkRequest) Validate() error {
	if strings.TrimSpace(r.Ticker) == "" {
		return &cerrors.ValidationError{Field: "ticker", Reason: cerrors.ReasonTicker, Message: "ticker cannot be empty"}
	}
	if !r.Granularity.Valid() {
		return cerrors.NewGranularityError(fmt.Sprintf("unsupported granularity %d", int(r.Granularity)))
	}
	if err := r.Window.Validate(); err != nil {
		return err
	}
	if r.Limit <= 0 || r.Limit > models.MaxCandlesPerRequest {
		return &cerrors.ValidationError{
			Field:   "limit",
			Reason:  cerrors.ReasonRange,
			Message: fmt.Sprintf("limit must be between 1 and %d, got %d", models.MaxCandlesPerRequest, r.Limit),
		}
	}
	return nil
}

// RateLimit describes the client-side request budget.
type RateLimit struct {
	RequestsPerSecond int           `json:"requests_per_second"`
	BurstSize         int           `json:"burst_size"`
	WindowDuration    time.Duration `json:"window_duration"`
}
