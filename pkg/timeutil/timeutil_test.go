package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeek(t *testing.T) {
	// 2026-10-15 is a Thursday.
	got := StartOfWeek(Date(2026, 10, 15))
	assert.Equal(t, Date(2026, 10, 12), got)
	assert.Equal(t, time.Monday, got.Weekday())

	// Sunday belongs to the week that started six days earlier.
	assert.Equal(t, Date(2026, 10, 12), StartOfWeek(Date(2026, 10, 18)))
	assert.Equal(t, Date(2026, 10, 18), EndOfWeek(Date(2026, 10, 13)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, Date(2026, 3, 5), d)

	d, err = ParseDate("2026-03-05T21:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 6, d.Day())

	_, err = ParseDate("05/03/2026")
	assert.Error(t, err)
}

func TestWeekRangeTr(t *testing.T) {
	assert.Equal(t, "29 Aralık - 4 Ocak 2026", WeekRangeTr(Date(2025, 12, 29)))
}

func TestDateFormatter(t *testing.T) {
	day := time.Date(2026, 1, 5, 22, 0, 0, 0, time.UTC) // already Jan 6 in Istanbul

	tests := []struct {
		locale string
		want   string
	}{
		{"tr-TR", "06.01.2026"},
		{"tr", "06.01.2026"},
		{"en-US", "1/6/2026"},
		{"en-GB", "06/01/2026"},
		{"de-DE", "6.1.2026"},
		{"not a locale!", "06.01.2026"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			f := NewDateFormatter(tt.locale, nil)
			assert.Equal(t, tt.want, f.Format(day))
		})
	}
}
