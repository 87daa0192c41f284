package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/johnayoung/go-crypto-candles/internal/exchange"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// FindOptions filters a product listing.
type FindOptions struct {
	// Search keeps products whose id contains this substring, case-insensitively.
	// When nothing matches, the full catalog is returned instead.
	Search string
	// Extended returns every field the exchange sent rather than the summary.
	Extended bool
}

// FindResult is a product listing. Exactly one of Summaries or Products is populated,
// depending on FindOptions.Extended.
type FindResult struct {
	Search      string                  `json:"search,omitempty"`
	Matched     bool                    `json:"matched"`
	Summaries   []models.ProductSummary `json:"summaries,omitempty"`
	Products    []models.Product        `json:"products,omitempty"`
	TotalListed int                     `json:"total_listed"`
}

// Len returns the number of listed products.
func (r *FindResult) Len() int {
	if r.Products != nil {
		return len(r.Products)
	}
	return len(r.Summaries)
}

// Finder lists and searches products.
type Finder struct {
	source exchange.ProductCatalog
	logger *slog.Logger
}

// NewFinder creates a Finder backed by source.
func NewFinder(source exchange.ProductCatalog, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{source: source, logger: logger.With("component", "catalog")}
}

// Find fetches the catalog and applies opts.
func (f *Finder) Find(ctx context.Context, opts FindOptions) (*FindResult, error) {
	products, err := f.source.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := &FindResult{Search: opts.Search, Matched: true, TotalListed: len(products)}

	selected := products
	if search := strings.ToUpper(strings.TrimSpace(opts.Search)); search != "" {
		var matches []models.Product
		for _, p := range products {
			if strings.Contains(strings.ToUpper(p.ID), search) {
				matches = append(matches, p)
			}
		}
		if len(matches) == 0 {
			f.logger.Info("no products match search, listing all", "search", opts.Search)
			result.Matched = false
		} else {
			selected = matches
		}
	}

	if opts.Extended {
		result.Products = append([]models.Product{}, selected...)
		return result, nil
	}

	result.Summaries = make([]models.ProductSummary, len(selected))
	for i, p := range selected {
		result.Summaries[i] = p.Summary()
	}
	return result, nil
}
