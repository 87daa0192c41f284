// Package config provides centralized configuration management for the candle retrieval tool.
// Configuration is layered from defaults, an optional JSON or YAML file, an optional .env file
// and environment variables, then validated as a whole.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// Application metadata
	AppName    string `json:"app_name" yaml:"app_name" env:"APP_NAME"`
	Version    string `json:"version" yaml:"version" env:"VERSION"`
	ConfigPath string `json:"-" yaml:"-" env:"CONFIG_PATH"`

	// Exchange configuration
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Export configuration
	Export ExportConfig `json:"export" yaml:"export"`
}

// ExchangeConfig configures the Coinbase REST client
type ExchangeConfig struct {
	MarketBaseURL   string `json:"market_base_url" yaml:"market_base_url" env:"MARKET_BASE_URL"`       // Host serving historical candles
	CatalogBaseURL  string `json:"catalog_base_url" yaml:"catalog_base_url" env:"CATALOG_BASE_URL"`    // Host serving products and tickers
	Timeout         string `json:"timeout" yaml:"timeout" env:"HTTP_TIMEOUT"`                          // HTTP request timeout
	RateLimit       int    `json:"rate_limit" yaml:"rate_limit" env:"RATE_LIMIT"`                      // Requests per second
	UserAgent       string `json:"user_agent" yaml:"user_agent" env:"USER_AGENT"`                      // User-Agent header
	ChunkPause      string `json:"chunk_pause" yaml:"chunk_pause" env:"CHUNK_PAUSE"`                   // Upper bound of the randomized pause between chunks; 0 disables it
	CatalogCacheTTL string `json:"catalog_cache_ttl" yaml:"catalog_cache_ttl" env:"CATALOG_CACHE_TTL"` // 0 disables the product catalog cache
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level         string            `json:"level" yaml:"level" env:"LOG_LEVEL"`                 // Log level: debug, info, warn, error
	Format        string            `json:"format" yaml:"format" env:"LOG_FORMAT"`              // Log format: json, text
	Output        string            `json:"output" yaml:"output" env:"LOG_OUTPUT"`              // Output: stdout, stderr, file
	FilePath      string            `json:"file_path" yaml:"file_path" env:"LOG_FILE_PATH"`     // Log file path
	MaxSize       int               `json:"max_size" yaml:"max_size" env:"LOG_MAX_SIZE"`        // Maximum log file size in MB
	MaxBackups    int               `json:"max_backups" yaml:"max_backups" env:"LOG_MAX_BACKUPS"` // Maximum log file backups
	MaxAge        int               `json:"max_age" yaml:"max_age" env:"LOG_MAX_AGE"`           // Maximum log file age in days
	Compress      bool              `json:"compress" yaml:"compress" env:"LOG_COMPRESS"`        // Compress old log files
	ContextFields map[string]string `json:"context_fields" yaml:"context_fields"`               // Additional context fields
}

// ExportConfig configures how retrieved series are rendered
type ExportConfig struct {
	Format     string `json:"format" yaml:"format" env:"EXPORT_FORMAT"`       // table, csv, json, parquet
	OutputPath string `json:"output_path" yaml:"output_path" env:"EXPORT_PATH"` // Empty writes to stdout
}

// ConfigManager handles configuration loading and validation
type ConfigManager struct {
	configPath string
	envFile    string
	logger     *slog.Logger
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(configPath string, logger *slog.Logger) *ConfigManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigManager{
		configPath: configPath,
		envFile:    ".env",
		logger:     logger,
	}
}

// WithEnvFile overrides the dotenv file consulted before reading the environment.
// An empty path disables dotenv loading.
func (cm *ConfigManager) WithEnvFile(path string) *ConfigManager {
	cm.envFile = path
	return cm
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Environment variables (highest priority, .env fills in unset ones)
// 2. Configuration file
// 3. Default values (lowest priority)
func (cm *ConfigManager) LoadConfig(ctx context.Context) (*AppConfig, error) {
	config := DefaultConfig()

	if cm.configPath != "" {
		if err := cm.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cm.loadDotenv(); err != nil {
		return nil, fmt.Errorf("failed to load dotenv file: %w", err)
	}

	if err := cm.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cm.validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	config.ConfigPath = cm.configPath
	cm.logger.Debug("configuration loaded",
		"config_path", cm.configPath,
		"market_base_url", config.Exchange.MarketBaseURL,
		"catalog_base_url", config.Exchange.CatalogBaseURL,
		"log_level", config.Logging.Level)

	return config, nil
}

// loadFromFile loads configuration from a JSON or YAML file, chosen by extension
func (cm *ConfigManager) loadFromFile(config *AppConfig) error {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		cm.logger.Debug("config file does not exist, using defaults", "path", cm.configPath)
		return nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cm.configPath, err)
	}

	switch strings.ToLower(filepath.Ext(cm.configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", cm.configPath, err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", cm.configPath, err)
		}
	}

	cm.logger.Debug("loaded configuration from file", "path", cm.configPath)
	return nil
}

// loadDotenv populates unset environment variables from the dotenv file, if present.
// Variables already present in the process environment win.
func (cm *ConfigManager) loadDotenv() error {
	if cm.envFile == "" || os.Getenv("NO_DOTENV") == "1" {
		return nil
	}
	if _, err := os.Stat(cm.envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(cm.envFile); err != nil {
		return fmt.Errorf("failed to read %s: %w", cm.envFile, err)
	}
	cm.logger.Debug("loaded dotenv file", "path", cm.envFile)
	return nil
}

// loadFromEnv loads configuration from environment variables
func (cm *ConfigManager) loadFromEnv(config *AppConfig) error {
	if val := os.Getenv("APP_NAME"); val != "" {
		config.AppName = val
	}
	if val := os.Getenv("VERSION"); val != "" {
		config.Version = val
	}

	// Exchange
	if val := os.Getenv("MARKET_BASE_URL"); val != "" {
		config.Exchange.MarketBaseURL = val
	}
	if val := os.Getenv("CATALOG_BASE_URL"); val != "" {
		config.Exchange.CatalogBaseURL = val
	}
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		config.Exchange.Timeout = val
	}
	if val := os.Getenv("RATE_LIMIT"); val != "" {
		rateLimit, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT must be an integer: %w", err)
		}
		config.Exchange.RateLimit = rateLimit
	}
	if val := os.Getenv("USER_AGENT"); val != "" {
		config.Exchange.UserAgent = val
	}
	if val := os.Getenv("CHUNK_PAUSE"); val != "" {
		config.Exchange.ChunkPause = val
	}
	if val := os.Getenv("CATALOG_CACHE_TTL"); val != "" {
		config.Exchange.CatalogCacheTTL = val
	}

	// Logging
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := os.Getenv("LOG_FILE_PATH"); val != "" {
		config.Logging.FilePath = val
	}

	// Export
	if val := os.Getenv("EXPORT_FORMAT"); val != "" {
		config.Export.Format = val
	}
	if val := os.Getenv("EXPORT_PATH"); val != "" {
		config.Export.OutputPath = val
	}

	return nil
}

// validateConfig validates the configuration for consistency and required fields
func (cm *ConfigManager) validateConfig(config *AppConfig) error {
	var errors []string

	if config.Exchange.MarketBaseURL == "" {
		errors = append(errors, "exchange.market_base_url is required")
	}
	if config.Exchange.CatalogBaseURL == "" {
		errors = append(errors, "exchange.catalog_base_url is required")
	}
	if config.Exchange.RateLimit <= 0 {
		errors = append(errors, "exchange.rate_limit must be greater than 0")
	}
	durations := []struct {
		name  string
		value string
	}{
		{"exchange.timeout", config.Exchange.Timeout},
		{"exchange.chunk_pause", config.Exchange.ChunkPause},
		{"exchange.catalog_cache_ttl", config.Exchange.CatalogCacheTTL},
	}
	for _, field := range durations {
		d, err := time.ParseDuration(field.value)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s is not a valid duration: %v", field.name, err))
			continue
		}
		if d < 0 {
			errors = append(errors, fmt.Sprintf("%s cannot be negative", field.name))
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.Logging.Level] {
		errors = append(errors, "logging.level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[config.Logging.Format] {
		errors = append(errors, "logging.format must be one of: json, text")
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validOutputs[config.Logging.Output] {
		errors = append(errors, "logging.output must be one of: stdout, stderr, file")
	}
	if config.Logging.Output == "file" && config.Logging.FilePath == "" {
		errors = append(errors, "logging.file_path is required when logging.output is file")
	}

	validExportFormats := map[string]bool{"table": true, "csv": true, "json": true, "parquet": true}
	if !validExportFormats[config.Export.Format] {
		errors = append(errors, "export.format must be one of: table, csv, json, parquet")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		AppName: "candles",
		Version: "1.0.0",
		Exchange: ExchangeConfig{
			MarketBaseURL:   "https://api.coinbase.com",
			CatalogBaseURL:  "https://api.exchange.coinbase.com",
			Timeout:         "30s",
			RateLimit:       10,
			UserAgent:       "go-crypto-candles/1.0",
			ChunkPause:      "2s",
			CatalogCacheTTL: "0s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   "",
			MaxSize:    100, // 100MB
			MaxBackups: 5,
			MaxAge:     30, // 30 days
			Compress:   true,
			ContextFields: map[string]string{
				"service": "candles",
			},
		},
		Export: ExportConfig{
			Format: "table",
		},
	}
}

// HTTPTimeout returns the parsed HTTP timeout.
func (c ExchangeConfig) HTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxChunkPause returns the parsed upper bound of the inter-chunk pause.
func (c ExchangeConfig) MaxChunkPause() time.Duration {
	d, _ := time.ParseDuration(c.ChunkPause)
	return d
}

// CacheTTL returns the parsed catalog cache TTL.
func (c ExchangeConfig) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.CatalogCacheTTL)
	return d
}

// String returns an indented JSON representation of the configuration
func (c *AppConfig) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
