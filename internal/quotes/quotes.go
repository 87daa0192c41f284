// Package quotes fetches live bid/ask/last-trade snapshots for validated tickers.
package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/johnayoung/go-crypto-candles/internal/exchange"
	"github.com/johnayoung/go-crypto-candles/internal/logger"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// TickerValidator confirms a ticker is listed before it is quoted.
type TickerValidator interface {
	Validate(ctx context.Context, ticker string) error
}

// Service returns live quotes.
type Service struct {
	validator TickerValidator
	source    exchange.QuoteSource
	logger    *slog.Logger
}

// NewService creates a quote service.
func NewService(validator TickerValidator, source exchange.QuoteSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{validator: validator, source: source, logger: log.With("component", "quotes")}
}

// Quote validates ticker against the catalog and returns its current snapshot.
func (s *Service) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = strings.TrimSpace(ticker)
	ctx = logger.WithOperation(logger.WithTicker(logger.EnsureTraceID(ctx), ticker), "quote")
	log := logger.ForContext(ctx, s.logger)

	if err := s.validator.Validate(ctx, ticker); err != nil {
		return nil, fmt.Errorf("quote %s: %w", ticker, err)
	}

	quote, err := s.source.GetQuote(ctx, ticker)
	if err != nil {
		log.Error("quote failed", "error", err)
		return nil, fmt.Errorf("quote %s: %w", ticker, err)
	}

	log.Debug("quote received", "bid", quote.Bid, "ask", quote.Ask, "price", quote.Price)
	return quote, nil
}
