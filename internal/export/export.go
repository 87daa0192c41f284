// Package export renders assembled candle series and product listings for output.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnayoung/go-crypto-candles/internal/models"
)

// Supported output formats.
const (
	FormatTable   = "table"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// SeriesWriter renders a series in one format.
type SeriesWriter interface {
	Extension() string
	Write(w io.Writer, s *models.Series) error
}

// Formats lists the supported series formats.
func Formats() []string {
	return []string{FormatTable, FormatCSV, FormatJSON, FormatParquet}
}

// NewSeriesWriter returns the writer for format, matched case-insensitively.
func NewSeriesWriter(format string) (SeriesWriter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatTable, "":
		return TableWriter{}, nil
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatParquet:
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use: %s)", format, strings.Join(Formats(), ", "))
	}
}

// WriteFile renders s into path, creating parent directories as needed.
func WriteFile(path string, writer SeriesWriter, s *models.Series) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := writer.Write(f, s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s output: %w", writer.Extension(), err)
	}
	return f.Close()
}
