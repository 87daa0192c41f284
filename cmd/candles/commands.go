package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/johnayoung/go-crypto-candles/internal/catalog"
	"github.com/johnayoung/go-crypto-candles/internal/dates"
	"github.com/johnayoung/go-crypto-candles/internal/export"
	"github.com/johnayoung/go-crypto-candles/internal/metrics"
)

// HistoryFlags holds the arguments of the history command
type HistoryFlags struct {
	Ticker      string
	Granularity int
	Start       string
	End         string
	Format      string
	Output      string
	Gaps        string
	Stats       bool
}

// Gap report modes for --gaps.
const (
	GapsWindow   = "window"
	GapsSequence = "sequence"
)

// QuoteFlags holds the arguments of the quote command
type QuoteFlags struct {
	Ticker string
	Format string
}

// ProductsFlags holds the arguments of the products command
type ProductsFlags struct {
	Search   string
	Extended bool
	Format   string
}

// handleHistory handles the 'history' command
func (cli *CLI) handleHistory(ctx context.Context, args []string) error {
	flags, err := parseHistoryFlags(args)
	if err != nil {
		return err
	}
	if flags.Format == "" {
		flags.Format = cli.config.Export.Format
	}
	if flags.Output == "" {
		flags.Output = cli.config.Export.OutputPath
	}

	writer, err := export.NewSeriesWriter(flags.Format)
	if err != nil {
		return usagef("%v", err)
	}

	series, err := cli.retriever.Retrieve(ctx, flags.Ticker, flags.Granularity, flags.Start, flags.End)
	if err != nil {
		return err
	}

	if series.Empty() {
		fmt.Fprintf(cli.stderr, "no candles published for %s between %s and %s\n",
			series.Ticker, dates.ISO(series.Window.Start), dates.ISO(series.Window.End))
	}

	report := cli.stdout
	if flags.Output != "" {
		if err := export.WriteFile(flags.Output, writer, series); err != nil {
			return err
		}
		fmt.Fprintf(cli.stdout, "wrote %d candles to %s (%d chunk requests)\n",
			series.Len(), flags.Output, int(cli.recorder.Value(metrics.ChunksRequested)))
	} else {
		if err := writer.Write(cli.stdout, series); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if writer.Extension() != "txt" {
			report = cli.stderr
		}
	}

	if flags.Gaps != "" {
		found := cli.detector.DetectSeries(series)
		if flags.Gaps == GapsSequence {
			found = cli.detector.DetectInSequence(series.Ticker, series.Candles, series.Granularity)
		}
		fmt.Fprintln(report)
		if err := export.WriteGaps(report, found); err != nil {
			return err
		}
	}
	if flags.Stats {
		if err := cli.writeStats(report); err != nil {
			return err
		}
	}
	return nil
}

func (cli *CLI) writeStats(w io.Writer) error {
	limits := cli.client.GetLimits()
	cli.recorder.RecordGauge(metrics.RateLimit, float64(limits.RequestsPerSecond), "Client-side request budget per second",
		map[string]string{"burst": strconv.Itoa(limits.BurstSize)})

	data, err := cli.recorder.GetSnapshot().JSON()
	if err != nil {
		return fmt.Errorf("failed to render stats: %w", err)
	}
	fmt.Fprintln(w)
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// handleQuote handles the 'quote' command
func (cli *CLI) handleQuote(ctx context.Context, args []string) error {
	flags, err := parseQuoteFlags(args)
	if err != nil {
		return err
	}

	quote, err := cli.quotes.Quote(ctx, flags.Ticker)
	if err != nil {
		return err
	}
	return export.WriteQuote(cli.stdout, quote, flags.Format)
}

// handleProducts handles the 'products' command
func (cli *CLI) handleProducts(ctx context.Context, args []string) error {
	flags, err := parseProductsFlags(args)
	if err != nil {
		return err
	}

	res, err := cli.finder.Find(ctx, catalog.FindOptions{Search: flags.Search, Extended: flags.Extended})
	if err != nil {
		return err
	}
	return export.WriteProducts(cli.stdout, res, flags.Format)
}

// parseHistoryFlags parses command line arguments for the history command
func parseHistoryFlags(args []string) (*HistoryFlags, error) {
	flags := &HistoryFlags{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--ticker", "-t":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Ticker = strings.ToUpper(v)
		case "--granularity", "-g":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			g, err := strconv.Atoi(v)
			if err != nil {
				return nil, usagef("invalid granularity value %q: must be seconds", v)
			}
			flags.Granularity = g
		case "--start", "-s":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Start = v
		case "--end", "-e":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.End = v
		case "--format", "-f":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Format = strings.ToLower(v)
		case "--output", "-o":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Output = v
		case "--gaps", "--gaps=" + GapsWindow:
			flags.Gaps = GapsWindow
		case "--gaps=" + GapsSequence:
			flags.Gaps = GapsSequence
		case "--stats":
			flags.Stats = true
		default:
			return nil, usagef("unknown flag: %s", args[i])
		}
	}

	if flags.Ticker == "" {
		return nil, usagef("--ticker is required")
	}
	if flags.Granularity == 0 {
		return nil, usagef("--granularity is required")
	}
	if flags.Start == "" {
		return nil, usagef("--start is required")
	}
	return flags, nil
}

// parseQuoteFlags parses command line arguments for the quote command
func parseQuoteFlags(args []string) (*QuoteFlags, error) {
	flags := &QuoteFlags{Format: export.FormatTable}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--ticker", "-t":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Ticker = strings.ToUpper(v)
		case "--format", "-f":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Format = strings.ToLower(v)
		default:
			return nil, usagef("unknown flag: %s", args[i])
		}
	}

	if flags.Ticker == "" {
		return nil, usagef("--ticker is required")
	}
	if flags.Format != export.FormatTable && flags.Format != export.FormatJSON {
		return nil, usagef("quote format must be table or json, got %q", flags.Format)
	}
	return flags, nil
}

// parseProductsFlags parses command line arguments for the products command
func parseProductsFlags(args []string) (*ProductsFlags, error) {
	flags := &ProductsFlags{Format: export.FormatTable}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--search":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Search = v
		case "--extended", "-x":
			flags.Extended = true
		case "--format", "-f":
			v, err := flagValue(args, &i)
			if err != nil {
				return nil, err
			}
			flags.Format = strings.ToLower(v)
		default:
			return nil, usagef("unknown flag: %s", args[i])
		}
	}

	if flags.Format != export.FormatTable && flags.Format != export.FormatJSON {
		return nil, usagef("products format must be table or json, got %q", flags.Format)
	}
	return flags, nil
}

// flagValue consumes the value following args[*i].
func flagValue(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", usagef("%s requires a value", args[*i])
	}
	*i++
	return args[*i], nil
}

// printUsage prints the top-level help
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s - Coinbase candle retrieval CLI v%s

USAGE:
    %s <command> [options]

COMMANDS:
    history     Retrieve historical candles for a ticker and time range
    quote       Show the live bid/ask/last trade for a ticker
    products    List or search the product catalog

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # Hourly BTC-USD candles for the first day of 2024
    %s history --ticker BTC-USD --granularity 3600 --start 2024-01-01-00-00 --end 2024-01-02-00-00

    # Minute candles up to now, written to Parquet
    %s history -t ETH-USD -g 60 -s 2024-06-01-00-00 -f parquet -o eth.parquet

    # Products whose id contains DOGE
    %s products --search DOGE

CONFIGURATION:
    Configuration can be provided via:
    - Config file: %s (YAML or JSON; override the path with CONFIG_PATH)
    - A .env file in the working directory (override the path with ENV_FILE)
    - Environment variables (e.g. MARKET_BASE_URL, CHUNK_PAUSE, LOG_LEVEL)

For detailed help on any command, use: %s <command> --help
`, AppName, Version, AppName, AppName, AppName, AppName, ConfigFile, AppName)
}

// printCommandHelp prints detailed help for a specific command
func printCommandHelp(w io.Writer, command string) {
	switch command {
	case "history":
		fmt.Fprintf(w, `%s history - Retrieve historical candles

USAGE:
    %s history [options]

OPTIONS:
    --ticker, -t       Product id, e.g. BTC-USD (required)
    --granularity, -g  Candle size in seconds: 60, 300, 900, 1800, 3600, 7200, 21600, 86400 (required)
    --start, -s        Start date, YYYY-MM-DD-HH-MM in UTC (required)
    --end, -e          End date, YYYY-MM-DD-HH-MM in UTC (default: now)
    --format, -f       table, csv, json or parquet (default from config)
    --output, -o       Write to this file instead of stdout
    --gaps[=MODE]      Report runs of missing candles. MODE is window (default: every
                       bucket of the range) or sequence (holes between returned candles)
    --stats            Print retrieval statistics as JSON
`, AppName, AppName)
	case "quote":
		fmt.Fprintf(w, `%s quote - Show a live quote

USAGE:
    %s quote --ticker BTC-USD [--format table|json]
`, AppName, AppName)
	case "products":
		fmt.Fprintf(w, `%s products - List the product catalog

USAGE:
    %s products [--search TEXT] [--extended] [--format table|json]

OPTIONS:
    --search        Keep products whose id contains TEXT; all products are listed when none match
    --extended, -x  Include every field returned by the exchange (JSON)
    --format, -f    table or json (default: table)
`, AppName, AppName)
	default:
		fmt.Fprintf(w, "Unknown command: %s\n", command)
		printUsage(w)
	}
}
