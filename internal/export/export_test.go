package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/catalog"
	"github.com/johnayoung/go-crypto-candles/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleSeries() *models.Series {
	c1, _ := models.NewCandleFromStrings(base, "42000", "42300", "42050", "42200", "8.25")
	c2, _ := models.NewCandleFromStrings(base.Add(time.Hour), "42100.5", "42500", "42200", "42400.25", "12.5")
	return &models.Series{
		Ticker:      "BTC-USD",
		Granularity: models.OneHour,
		Window:      models.TimeWindow{Start: base, End: base.Add(2 * time.Hour)},
		Candles:     []models.Candle{*c1, *c2},
	}
}

func TestNewSeriesWriter(t *testing.T) {
	for format, ext := range map[string]string{"table": "txt", "CSV": "csv", " json ": "json", "parquet": "parquet", "": "txt"} {
		w, err := NewSeriesWriter(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, w.Extension())
	}

	_, err := NewSeriesWriter("xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, csv, json, parquet")
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, sampleSeries()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"time", "low", "high", "open", "close", "volume"}, records[0])
	assert.Equal(t, []string{"2024-01-01T00:00:00Z", "42000", "42300", "42050", "42200", "8.25"}, records[1])
	assert.Equal(t, "42400.25", records[2][4])
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONWriter{}.Write(&buf, sampleSeries()))

	var decoded models.Series
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "BTC-USD", decoded.Ticker)
	require.Len(t, decoded.Candles, 2)
	assert.True(t, decimal.RequireFromString("12.5").Equal(decoded.Candles[1].Volume))
	assert.True(t, decoded.Candles[1].Timestamp.Equal(base.Add(time.Hour)))
}

func TestTableWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TableWriter{}.Write(&buf, sampleSeries()))

	out := buf.String()
	assert.Contains(t, out, "BTC-USD ONE_HOUR")
	assert.Contains(t, out, "(2 candles)")
	assert.Contains(t, out, "2024-01-01 01:00")
	assert.Contains(t, out, "42400.25")
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "btc.parquet")
	require.NoError(t, WriteFile(path, ParquetWriter{}, sampleSeries()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	rows, err := parquet.Read[ParquetRow](f, info.Size())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ParquetRows(sampleSeries()), rows)
	assert.Equal(t, base.Unix(), rows[0].Time)
	assert.Equal(t, 42400.25, rows[1].Close)
	assert.Equal(t, int64(3600), rows[1].Granularity)
}

func TestWriteProducts(t *testing.T) {
	summaries := &catalog.FindResult{
		Matched:     true,
		TotalListed: 1,
		Summaries:   []models.ProductSummary{{ID: "BTC-USD", DisplayName: "BTC/USD", Status: "online"}},
	}

	var table bytes.Buffer
	require.NoError(t, WriteProducts(&table, summaries, "table"))
	assert.Contains(t, table.String(), "BTC/USD")
	assert.True(t, strings.HasPrefix(table.String(), "ID"))

	summaries.Matched = false
	summaries.Search = "XYZ"
	table.Reset()
	require.NoError(t, WriteProducts(&table, summaries, "table"))
	assert.Contains(t, table.String(), `no products match "XYZ"`)

	var js bytes.Buffer
	require.NoError(t, WriteProducts(&js, summaries, "json"))
	var decoded []models.ProductSummary
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, summaries.Summaries, decoded)

	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"ETH-USD","auction_mode":true}`), &p))
	extended := &catalog.FindResult{Matched: true, Products: []models.Product{p}}
	js.Reset()
	require.NoError(t, WriteProducts(&js, extended, "table"))
	assert.Contains(t, js.String(), `"auction_mode": true`)
}

func TestWriteQuoteAndGaps(t *testing.T) {
	q := &models.Quote{
		Ticker: "BTC-USD", Time: base, TradeID: 7,
		Bid: decimal.RequireFromString("1.5"), Ask: decimal.RequireFromString("2"),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteQuote(&buf, q, "table"))
	assert.Contains(t, buf.String(), "0.5")
	assert.Contains(t, buf.String(), "2024-01-01T00:00:00Z")

	buf.Reset()
	require.NoError(t, WriteGaps(&buf, nil))
	assert.Equal(t, "no gaps\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteGaps(&buf, []models.Gap{{Start: base, End: base.Add(time.Hour), Missing: 1}}))
	assert.Contains(t, buf.String(), "2024-01-01T01:00:00Z")
}
