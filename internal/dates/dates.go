// Package dates parses and formats the minute-resolution date strings accepted by
// candle retrieval. All instants are interpreted and returned in UTC.
package dates

import (
	"fmt"
	"strings"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
)

const (
	// Layout is the accepted input form, YYYY-MM-DD-HH-MM.
	Layout = "2006-01-02-15-04"
	// HumanLayout is Layout spelled out for error messages.
	HumanLayout = "YYYY-MM-DD-HH-MM"
)

// Clock returns the current instant. It is replaced in tests.
type Clock func() time.Time

// Parse converts a YYYY-MM-DD-HH-MM string into a UTC instant. field names the input
// in the returned FormatError.
func Parse(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, cerrors.NewFormatError(field, fmt.Sprintf("%s date is required in %s format", field, HumanLayout))
	}

	t, err := time.ParseInLocation(Layout, value, time.UTC)
	if err != nil {
		return time.Time{}, cerrors.NewFormatError(field,
			fmt.Sprintf("%s date %q must be in %s format", field, value, HumanLayout))
	}
	return t, nil
}

// ParseOrNow parses value like Parse, except that an empty value yields the current
// instant from now, truncated to the minute.
func ParseOrNow(field, value string, now Clock) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		if now == nil {
			now = time.Now
		}
		return now().UTC().Truncate(time.Minute), nil
	}
	return Parse(field, value)
}

// Compare orders two instants: -1 if start is before end, 0 if equal, +1 otherwise.
func Compare(start, end time.Time) int {
	return start.Compare(end)
}

// ISO returns the ISO8601 form of t in UTC, e.g. 2024-01-01T00:00:00Z.
func ISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Format renders t back into the accepted input form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}
