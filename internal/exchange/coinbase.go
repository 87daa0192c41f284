package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/config"
	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// API endpoints
	candlesEndpoint  = "/api/v3/brokerage/market/products/%s/candles"
	productsEndpoint = "/products"
	tickerEndpoint   = "/products/%s/ticker"

	rateLimitBurst  = 1
	rateLimitWindow = time.Second

	// Error bodies are echoed into errors; anything longer is truncated.
	maxErrorBody = 512

	component = "exchange"
)

// CoinbaseClient talks to the public Coinbase REST endpoints. Candles come from the
// market host; products and tickers from the catalog host.
type CoinbaseClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	limits      RateLimit
	marketURL   string
	catalogURL  string
	userAgent   string
	logger      *slog.Logger
}

var _ Exchange = (*CoinbaseClient)(nil)

// NewCoinbaseClient creates a client from the exchange section of the configuration.
func NewCoinbaseClient(cfg config.ExchangeConfig, logger *slog.Logger) *CoinbaseClient {
	return NewCoinbaseClientWithHTTP(cfg, logger, &http.Client{
		Timeout: cfg.HTTPTimeout(),
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

// NewCoinbaseClientWithHTTP creates a client that sends requests through httpClient.
func NewCoinbaseClientWithHTTP(cfg config.ExchangeConfig, logger *slog.Logger, httpClient *http.Client) *CoinbaseClient {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &CoinbaseClient{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(limit, rateLimitBurst),
		limits: RateLimit{
			RequestsPerSecond: cfg.RateLimit,
			BurstSize:         rateLimitBurst,
			WindowDuration:    rateLimitWindow,
		},
		marketURL:  strings.TrimRight(cfg.MarketBaseURL, "/"),
		catalogURL: strings.TrimRight(cfg.CatalogBaseURL, "/"),
		userAgent:  cfg.UserAgent,
		logger:     logger.With("component", component),
	}
}

// FetchCandles implements CandleSource.
func (c *CoinbaseClient) FetchCandles(ctx context.Context, req ChunkRequest) ([]models.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk request: %w", err)
	}

	params := url.Values{}
	params.Set("start", strconv.FormatInt(req.Window.Start.Unix(), 10))
	params.Set("end", strconv.FormatInt(req.Window.End.Unix(), 10))
	params.Set("granularity", req.Granularity.Token())
	params.Set("limit", strconv.Itoa(req.Limit))

	requestURL := c.marketURL + fmt.Sprintf(candlesEndpoint, url.PathEscape(req.Ticker)) + "?" + params.Encode()

	c.logger.Debug("fetching candles",
		"ticker", req.Ticker,
		"start", req.Window.Start,
		"end", req.Window.End,
		"granularity", req.Granularity.Token(),
		"limit", req.Limit)

	body, err := c.doRequest(ctx, "fetch_candles", requestURL)
	if err != nil {
		return nil, err
	}

	candles, err := decodeCandles(body)
	if err != nil {
		return nil, cerrors.NewUnknownError(fmt.Errorf("failed to parse candles response: %w", err),
			component, "fetch_candles", requestURL)
	}

	c.logger.Debug("fetched candles", "ticker", req.Ticker, "count", len(candles))
	return candles, nil
}

// ListProducts implements ProductCatalog.
func (c *CoinbaseClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	requestURL := c.catalogURL + productsEndpoint

	body, err := c.doRequest(ctx, "list_products", requestURL)
	if err != nil {
		return nil, err
	}

	products, err := decodeProducts(body)
	if err != nil {
		return nil, cerrors.NewUnknownError(fmt.Errorf("failed to parse products response: %w", err),
			component, "list_products", requestURL)
	}

	c.logger.Debug("fetched products", "count", len(products))
	return products, nil
}

// GetQuote implements QuoteSource.
func (c *CoinbaseClient) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	requestURL := c.catalogURL + fmt.Sprintf(tickerEndpoint, url.PathEscape(ticker))

	body, err := c.doRequest(ctx, "get_quote", requestURL)
	if err != nil {
		return nil, err
	}

	var raw coinbaseTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, cerrors.NewUnknownError(fmt.Errorf("failed to parse ticker response: %w", err),
			component, "get_quote", requestURL)
	}

	return &models.Quote{
		Ticker:  ticker,
		Time:    raw.Time.UTC(),
		TradeID: raw.TradeID,
		Bid:     raw.Bid,
		Ask:     raw.Ask,
		Price:   raw.Price,
		Size:    raw.Size,
		Volume:  raw.Volume,
	}, nil
}

// GetLimits returns the client-side rate limit configuration.
func (c *CoinbaseClient) GetLimits() RateLimit {
	return c.limits
}

// doRequest performs a single GET. Non-success statuses and transport failures are
// classified and returned; nothing is retried.
func (c *CoinbaseClient) doRequest(ctx context.Context, operation, requestURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, cerrors.NewConnectionError(fmt.Errorf("rate limit wait failed: %w", err), component, operation, requestURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, cerrors.NewUnknownError(fmt.Errorf("failed to create request: %w", err), component, operation, requestURL)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cerrors.NewConnectionError(fmt.Errorf("request failed: %w", err), component, operation, requestURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerrors.NewConnectionError(fmt.Errorf("failed to read response body: %w", err), component, operation, requestURL)
	}

	if err := cerrors.ClassifyStatus(resp.StatusCode, component, operation, requestURL, truncate(body)); err != nil {
		c.logger.Warn("request rejected",
			"operation", operation,
			"status", resp.StatusCode,
			"error_type", cerrors.GetErrorType(err),
			"severity", cerrors.GetSeverity(err).String())
		return nil, err
	}

	return body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

// API response structures

type coinbaseTicker struct {
	Ask     decimal.Decimal `json:"ask"`
	Bid     decimal.Decimal `json:"bid"`
	Volume  decimal.Decimal `json:"volume"`
	TradeID int64           `json:"trade_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Time    time.Time       `json:"time"`
}
