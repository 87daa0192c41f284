package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/johnayoung/go-crypto-candles/internal/catalog"
	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// WriteProducts renders a product listing as a table or JSON. Extended listings are
// always written as JSON since their fields vary per product.
func WriteProducts(w io.Writer, res *catalog.FindResult, format string) error {
	if res.Products != nil || strings.EqualFold(format, FormatJSON) {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if res.Products != nil {
			raws := make([]map[string]json.RawMessage, len(res.Products))
			for i, p := range res.Products {
				raws[i] = p.Raw
			}
			return encoder.Encode(raws)
		}
		return encoder.Encode(res.Summaries)
	}

	if !res.Matched {
		fmt.Fprintf(w, "no products match %q, listing all %d\n\n", res.Search, res.TotalListed)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDISPLAY NAME\tSTATUS\tFX STABLECOIN\tMAX SLIPPAGE")
	for _, p := range res.Summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", p.ID, p.DisplayName, p.Status, p.FXStablecoin, p.MaxSlippagePercentage)
	}
	return tw.Flush()
}

// WriteQuote renders a quote as a table or JSON.
func WriteQuote(w io.Writer, q *models.Quote, format string) error {
	if strings.EqualFold(format, FormatJSON) {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(q)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticker\t%s\n", q.Ticker)
	fmt.Fprintf(tw, "Time\t%s\n", q.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Bid\t%s\n", q.Bid)
	fmt.Fprintf(tw, "Ask\t%s\n", q.Ask)
	fmt.Fprintf(tw, "Spread\t%s\n", q.Spread())
	fmt.Fprintf(tw, "Price\t%s\n", q.Price)
	fmt.Fprintf(tw, "Size\t%s\n", q.Size)
	fmt.Fprintf(tw, "Volume\t%s\n", q.Volume)
	fmt.Fprintf(tw, "Trade ID\t%d\n", q.TradeID)
	return tw.Flush()
}

// WriteGaps renders a gap report as a table.
func WriteGaps(w io.Writer, gaps []models.Gap) error {
	if len(gaps) == 0 {
		_, err := fmt.Fprintln(w, "no gaps")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAP START\tGAP END\tMISSING")
	for _, g := range gaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Start.UTC().Format(time.RFC3339), g.End.UTC().Format(time.RFC3339), g.Missing)
	}
	return tw.Flush()
}
