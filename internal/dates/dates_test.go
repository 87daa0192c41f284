package dates

import (
	"testing"
	"time"

	cerrors "github.com/johnayoung/go-crypto-candles/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "midnight", input: "2024-01-01-00-00", expected: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "afternoon", input: "2023-06-15-14-37", expected: time.Date(2023, 6, 15, 14, 37, 0, 0, time.UTC)},
		{name: "surrounding whitespace", input: " 2024-02-29-23-59 ", expected: time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)},
		{name: "empty", input: "", wantErr: true},
		{name: "iso form", input: "2024-01-01T00:00:00Z", wantErr: true},
		{name: "missing minutes", input: "2024-01-01-00", wantErr: true},
		{name: "month out of range", input: "2024-13-01-00-00", wantErr: true},
		{name: "hour out of range", input: "2024-01-01-25-00", wantErr: true},
		{name: "not a leap year", input: "2023-02-29-00-00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("start", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, cerrors.IsValidationError(err))
				assert.Contains(t, err.Error(), HumanLayout)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseOrNow(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 8, 41, 27, 999, time.FixedZone("EST", -5*3600))
	clock := func() time.Time { return fixed }

	got, err := ParseOrNow("end", "", clock)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 13, 41, 0, 0, time.UTC), got)

	got, err = ParseOrNow("end", "2024-01-01-10-00", clock)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)

	_, err = ParseOrNow("end", "yesterday", clock)
	assert.True(t, cerrors.IsValidationError(err))
}

func TestCompareAndFormat(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Minute)

	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 0, Compare(a, a))
	assert.Equal(t, 1, Compare(b, a))

	assert.Equal(t, "2024-01-01T00:01:00Z", ISO(b))
	assert.Equal(t, "2024-01-01-00-01", Format(b))

	parsed, err := Parse("start", Format(b))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(b))
}
