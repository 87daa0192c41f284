// Candles CLI
// This application retrieves historical candles, live quotes and product listings from
// the public Coinbase REST API.
//
// Usage:
//
//	candles history --ticker BTC-USD --granularity 3600 --start 2024-01-01-00-00 --end 2024-01-02-00-00
//	candles quote --ticker BTC-USD
//	candles products --search DOGE
//
// For detailed help on any command, use: candles <command> --help
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/johnayoung/go-crypto-candles/internal/catalog"
	"github.com/johnayoung/go-crypto-candles/internal/config"
	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/johnayoung/go-crypto-candles/internal/exchange"
	"github.com/johnayoung/go-crypto-candles/internal/gaps"
	"github.com/johnayoung/go-crypto-candles/internal/history"
	"github.com/johnayoung/go-crypto-candles/internal/logger"
	"github.com/johnayoung/go-crypto-candles/internal/metrics"
	"github.com/johnayoung/go-crypto-candles/internal/quotes"
)

// CLI version information
const (
	Version    = "1.0.0"
	AppName    = "candles"
	ConfigFile = "candles.yaml"
	EnvFile    = ".env"
)

// Exit codes following standard conventions
const (
	ExitSuccess       = 0
	ExitUsageError    = 1
	ExitConfigError   = 2
	ExitConnectionErr = 3
	ExitDataError     = 4
)

// CLI represents the main CLI application
type CLI struct {
	config    *config.AppConfig
	loggers   *logger.LoggerManager
	logger    *slog.Logger
	client    exchange.Exchange
	validator *catalog.Validator
	finder    *catalog.Finder
	quotes    *quotes.Service
	retriever *history.Retriever
	detector  *gaps.Detector
	recorder  *metrics.Recorder
	stdout    io.Writer
	stderr    io.Writer
}

// main is the entry point for the CLI application
func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return ExitUsageError
	}

	command, rest := args[0], args[1:]
	switch command {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "%s version %s\n", AppName, Version)
		return ExitSuccess
	case "--help", "-h", "help":
		if len(rest) > 0 {
			printCommandHelp(stdout, rest[0])
		} else {
			printUsage(stdout)
		}
		return ExitSuccess
	case "history", "quote", "products":
	default:
		fmt.Fprintf(stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage(stderr)
		return ExitUsageError
	}

	if wantsHelp(rest) {
		printCommandHelp(stdout, command)
		return ExitSuccess
	}

	cli := &CLI{stdout: stdout, stderr: stderr}
	if err := cli.initialize(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: Failed to initialize CLI: %v\n", err)
		return ExitConfigError
	}
	defer cli.loggers.Close()

	err := logger.TimedOperation(cli.logger, command, func() error {
		switch command {
		case "history":
			return cli.handleHistory(ctx, rest)
		case "quote":
			return cli.handleQuote(ctx, rest)
		default:
			return cli.handleProducts(ctx, rest)
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(stderr, "Hint: %s\n", hint)
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// initialize sets up the CLI application components
func (cli *CLI) initialize(ctx context.Context) error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = ConfigFile
	}
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = EnvFile
	}

	bootstrap := slog.New(slog.NewTextHandler(cli.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.NewConfigManager(configPath, bootstrap).WithEnvFile(envFile).LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cli.config = cfg

	switch cfg.Logging.Output {
	case "stdout":
		cli.loggers = logger.NewLoggerManagerWithWriter(cfg.Logging, cli.stdout)
	case "file":
		cli.loggers, err = logger.NewLoggerManager(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
	default:
		cli.loggers = logger.NewLoggerManagerWithWriter(cfg.Logging, cli.stderr)
	}
	cli.logger = cli.loggers.GetLogger()
	cli.logger.Debug("configuration loaded", "config", cfg.String())

	cli.client = exchange.NewCoinbaseClient(cfg.Exchange, cli.logger)

	var validatorOpts []catalog.ValidatorOption
	if ttl := cfg.Exchange.CacheTTL(); ttl > 0 {
		validatorOpts = append(validatorOpts, catalog.WithCacheTTL(ttl))
	}
	cli.validator = catalog.NewValidator(cli.client, cli.logger, validatorOpts...)
	cli.finder = catalog.NewFinder(cli.client, cli.logger)
	cli.quotes = quotes.NewService(cli.validator, cli.client, cli.logger)

	cli.recorder = metrics.NewRecorder()
	cli.detector = gaps.NewDetector(cli.logger)
	cli.retriever = history.NewRetriever(cli.validator, cli.client, cli.logger,
		history.WithPacer(history.NewPacer(cfg.Exchange.MaxChunkPause(), nil)),
		history.WithRecorder(cli.recorder),
		history.WithGapDetector(cli.detector))

	return nil
}

// exitCodeFor maps an error onto the CLI exit codes.
func exitCodeFor(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsageError
	}
	if cerrors.IsConnectionError(err) {
		return ExitConnectionErr
	}
	return ExitDataError
}

// hintFor suggests a next step for the failures a user can act on.
func hintFor(err error) string {
	switch {
	case cerrors.IsInvalidRange(err):
		return "--start must be earlier than --end (or omit --end to mean now)"
	case cerrors.IsUnknownTicker(err):
		return fmt.Sprintf("list available products with: %s products --search <text>", AppName)
	case cerrors.IsRequestError(err):
		return "the exchange rejected the request; check the ticker, granularity and range"
	case cerrors.IsConnectionError(err):
		return "the exchange could not be reached or refused service; try again later"
	case cerrors.IsUnknownError(err):
		return "the exchange returned an unexpected response"
	default:
		return ""
	}
}

// usageError reports malformed command-line arguments.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}
