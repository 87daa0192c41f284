package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// The candles endpoint has answered with both an envelope and a bare array over time, and
// with rows as either positional arrays or objects. All four shapes are accepted.

var errEmptyBody = errors.New("empty response body")

// flexValue holds a JSON number or a JSON string containing a number.
type flexValue string

func (f *flexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		return errors.New("missing value")
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexValue(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected number, got %s", data)
		}
		*f = flexValue(n.String())
	}
	return nil
}

func (f flexValue) unix() (time.Time, error) {
	if secs, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	secs, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", string(f))
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

// candleObject is the keyed row form.
type candleObject struct {
	Start  flexValue `json:"start"`
	Low    flexValue `json:"low"`
	High   flexValue `json:"high"`
	Open   flexValue `json:"open"`
	Close  flexValue `json:"close"`
	Volume flexValue `json:"volume"`
}

func decodeCandles(body []byte) ([]models.Candle, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errEmptyBody
	}

	var rows []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Candles []json.RawMessage `json:"candles"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		rows = envelope.Candles
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		candles = append(candles, *candle)
	}
	return candles, nil
}

func decodeRow(row json.RawMessage) (*models.Candle, error) {
	row = bytes.TrimSpace(row)
	if len(row) == 0 {
		return nil, errEmptyBody
	}

	var obj candleObject
	if row[0] == '[' {
		var fields []flexValue
		if err := json.Unmarshal(row, &fields); err != nil {
			return nil, err
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("expected 6 fields [time, low, high, open, close, volume], got %d", len(fields))
		}
		obj = candleObject{Start: fields[0], Low: fields[1], High: fields[2], Open: fields[3], Close: fields[4], Volume: fields[5]}
	} else if err := json.Unmarshal(row, &obj); err != nil {
		return nil, err
	}

	ts, err := obj.Start.unix()
	if err != nil {
		return nil, err
	}
	return models.NewCandleFromStrings(ts, string(obj.Low), string(obj.High), string(obj.Open), string(obj.Close), string(obj.Volume))
}

func decodeProducts(body []byte) ([]models.Product, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errEmptyBody
	}

	var products []models.Product
	if body[0] == '[' {
		if err := json.Unmarshal(body, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	var envelope struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Products, nil
}
