package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeCalculation(t *testing.T) {
	tests := []struct {
		name        string
		birthDate   time.Time
		atDate      time.Time
		expectedAge int
	}{
		{"Same month and day", date(1965, 2, 25), date(2025, 2, 25), 60},
		{"Day before birthday", date(1965, 2, 25), date(2025, 2, 24), 59},
		{"Month after birthday", date(1965, 2, 25), date(2025, 3, 25), 60},
		{"Leap year birth, non-leap year check", date(1964, 2, 29), date(2025, 2, 28), 60},
		{"Leap year birth, leap year check", date(1964, 2, 29), date(2024, 2, 29), 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedAge, Age(tt.birthDate, tt.atDate))
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same month", date(2025, 1, 1), date(2025, 1, 31), 0},
		{"across year", date(2025, 11, 1), date(2026, 2, 1), 3},
		{"ignores day", date(2025, 1, 31), date(2025, 2, 1), 1},
		{"earlier", date(2025, 3, 1), date(2024, 3, 1), -12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthsBetween(tt.from, tt.to))
		})
	}
}

func TestAgeInYears(t *testing.T) {
	assert.InDelta(t, 55.5, AgeInYears(date(1970, 1, 20), date(2025, 7, 1)), 1e-12)
}

func TestParseYearMonth(t *testing.T) {
	got, err := ParseYearMonth("2030-06")
	require.NoError(t, err)
	assert.Equal(t, date(2030, 6, 1), got)

	got, err = ParseYearMonth(" 2030-06-17 ")
	require.NoError(t, err)
	assert.Equal(t, date(2030, 6, 1), got)

	_, err = ParseYearMonth("June 2030")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("1970-05-14")
	require.NoError(t, err)
	assert.Equal(t, 14, got.Day())

	got, err = ParseDate("1970-05")
	require.NoError(t, err)
	assert.Equal(t, time.May, got.Month())

	_, err = ParseDate("14/05/1970")
	assert.Error(t, err)
}

func TestFormatAndAddMonths(t *testing.T) {
	start := FirstOfMonth(time.Date(2025, 1, 17, 13, 0, 0, 0, time.Local))
	assert.Equal(t, "2025-01", FormatYearMonth(start))
	assert.Equal(t, "2026-03", FormatYearMonth(AddMonths(start, 14)))
}
