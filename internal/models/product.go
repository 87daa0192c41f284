package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one entry of the exchange product catalog. Raw keeps every field the
// exchange returned for extended listings.
type Product struct {
	ID                    string                     `json:"id"`
	DisplayName           string                     `json:"display_name"`
	BaseCurrency          string                     `json:"base_currency"`
	QuoteCurrency         string                     `json:"quote_currency"`
	Status                string                     `json:"status"`
	FXStablecoin          bool                       `json:"fx_stablecoin"`
	MaxSlippagePercentage string                     `json:"max_slippage_percentage"`
	TradingDisabled       bool                       `json:"trading_disabled"`
	Raw                   map[string]json.RawMessage `json:"-"`
}

// ProductSummary is the condensed product projection.
type ProductSummary struct {
	ID                    string `json:"id"`
	DisplayName           string `json:"display_name"`
	FXStablecoin          bool   `json:"fx_stablecoin"`
	MaxSlippagePercentage string `json:"max_slippage_percentage"`
	Status                string `json:"status"`
}

// Summary returns the condensed projection of p.
func (p Product) Summary() ProductSummary {
	return ProductSummary{
		ID:                    p.ID,
		DisplayName:           p.DisplayName,
		FXStablecoin:          p.FXStablecoin,
		MaxSlippagePercentage: p.MaxSlippagePercentage,
		Status:                p.Status,
	}
}

// Quote is a bid/ask/last-trade snapshot for one ticker.
type Quote struct {
	Ticker  string          `json:"ticker"`
	Time    time.Time       `json:"time"`
	TradeID int64           `json:"trade_id"`
	Bid     decimal.Decimal `json:"bid"`
	Ask     decimal.Decimal `json:"ask"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Volume  decimal.Decimal `json:"volume"`
}

// Spread returns Ask - Bid.
func (q Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// UnmarshalJSON decodes the known fields and retains the full object in Raw.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(decoded)
	p.Raw = raw
	return nil
}
