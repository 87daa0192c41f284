package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/models"
	"github.com/parquet-go/parquet-go"
)

var csvHeader = []string{"time", "low", "high", "open", "close", "volume"}

// TableWriter renders an aligned, human-readable table.
type TableWriter struct{}

func (TableWriter) Extension() string { return "txt" }

func (TableWriter) Write(w io.Writer, s *models.Series) error {
	fmt.Fprintf(w, "%s %s %s (%d candles)\n\n", s.Ticker, s.Granularity, s.Window, s.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Time\tLow\tHigh\tOpen\tClose\tVolume\t")
	for _, c := range s.Candles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			c.Timestamp.UTC().Format("2006-01-02 15:04"),
			c.Low, c.High, c.Open, c.Close, c.Volume)
	}
	return tw.Flush()
}

// CSVWriter renders one row per candle with an ISO8601 time column.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(w io.Writer, s *models.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range s.Candles {
		record := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			c.Low.String(),
			c.High.String(),
			c.Open.String(),
			c.Close.String(),
			c.Volume.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONWriter renders the full series as indented JSON.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

func (JSONWriter) Write(w io.Writer, s *models.Series) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// ParquetRow is the columnar layout of one candle.
type ParquetRow struct {
	Ticker      string  `parquet:"ticker,dict"`
	Granularity int64   `parquet:"granularity"`
	Time        int64   `parquet:"time"` // unix seconds
	Low         float64 `parquet:"low"`
	High        float64 `parquet:"high"`
	Open        float64 `parquet:"open"`
	Close       float64 `parquet:"close"`
	Volume      float64 `parquet:"volume"`
}

// ParquetWriter renders the series as a Parquet file. Prices become float64.
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(w io.Writer, s *models.Series) error {
	return parquet.Write(w, ParquetRows(s))
}

// ParquetRows converts s into Parquet rows.
func ParquetRows(s *models.Series) []ParquetRow {
	rows := make([]ParquetRow, len(s.Candles))
	for i, c := range s.Candles {
		rows[i] = ParquetRow{
			Ticker:      s.Ticker,
			Granularity: int64(s.Granularity.Seconds()),
			Time:        c.Timestamp.Unix(),
			Low:         c.Low.InexactFloat64(),
			High:        c.High.InexactFloat64(),
			Open:        c.Open.InexactFloat64(),
			Close:       c.Close.InexactFloat64(),
			Volume:      c.Volume.InexactFloat64(),
		}
	}
	return rows
}
