// Package catalog answers questions about the exchange product catalog: whether a ticker
// exists and which products match a search.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/exchange"
)

// Validator confirms tickers against the product catalog.
//
// With a zero TTL every Validate call re-fetches the catalog. A positive TTL keeps the
// set of product ids for that long; Invalidate drops it early. A ticker missing from a
// cached set is re-checked against a fresh listing before it is reported unknown.
type Validator struct {
	source exchange.ProductCatalog
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	ids       map[string]struct{}
	fetchedAt time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithCacheTTL enables caching of the product id set.
func WithCacheTTL(ttl time.Duration) ValidatorOption {
	return func(v *Validator) { v.ttl = ttl }
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a Validator backed by source.
func NewValidator(source exchange.ProductCatalog, logger *slog.Logger, opts ...ValidatorOption) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		source: source,
		now:    time.Now,
		logger: logger.With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns nil when ticker is listed, an UnknownTickerError when it is not, and
// the classified fetch error when the catalog could not be read.
func (v *Validator) Validate(ctx context.Context, ticker string) error {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return &cerrors.ValidationError{Field: "ticker", Reason: cerrors.ReasonTicker, Message: "ticker cannot be empty"}
	}

	ids, cached, err := v.productIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load product catalog: %w", err)
	}

	if _, ok := ids[ticker]; !ok && cached {
		v.logger.Debug("ticker missing from cached catalog, refreshing", "ticker", ticker)
		v.Invalidate()
		if ids, _, err = v.productIDs(ctx); err != nil {
			return fmt.Errorf("failed to load product catalog: %w", err)
		}
	}

	if _, ok := ids[ticker]; !ok {
		v.logger.Info("ticker not found in catalog", "ticker", ticker, "products", len(ids))
		return &cerrors.UnknownTickerError{Ticker: ticker}
	}
	return nil
}

// Invalidate drops any cached catalog so the next Validate re-fetches.
func (v *Validator) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = nil
	v.fetchedAt = time.Time{}
}

// productIDs returns the listed ids and whether they came from the cache.
func (v *Validator) productIDs(ctx context.Context) (map[string]struct{}, bool, error) {
	if v.ttl > 0 {
		v.mu.Lock()
		if v.ids != nil && v.now().Sub(v.fetchedAt) < v.ttl {
			ids := v.ids
			v.mu.Unlock()
			return ids, true, nil
		}
		v.mu.Unlock()
	}

	products, err := v.source.ListProducts(ctx)
	if err != nil {
		return nil, false, err
	}

	ids := make(map[string]struct{}, len(products))
	for _, p := range products {
		ids[p.ID] = struct{}{}
	}

	if v.ttl > 0 {
		v.mu.Lock()
		v.ids = ids
		v.fetchedAt = v.now()
		v.mu.Unlock()
	}
	return ids, false, nil
}
