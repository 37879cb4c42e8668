package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// YearMonthLayout is the calendar-month format used on every output axis.
const YearMonthLayout = "2006-01"

// Age calculates the age in whole years at a given date
func Age(birthDate, atDate time.Time) int {
	age := atDate.Year() - birthDate.Year()
	if atDate.Month() < birthDate.Month() ||
		(atDate.Month() == birthDate.Month() && atDate.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// AgeInYears returns the age at a date by whole calendar months, as a
// fraction of years. The day of month is ignored.
func AgeInYears(birthDate, atDate time.Time) float64 {
	return float64(MonthsBetween(birthDate, atDate)) / 12.0
}

// MonthsBetween counts calendar months from one date to another, ignoring
// the day of month. The result is negative when to is earlier.
func MonthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// FirstOfMonth truncates a date to the first day of its month in UTC.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds a specified number of months to a date
func AddMonths(date time.Time, months int) time.Time {
	return date.AddDate(0, months, 0)
}

// FormatYearMonth renders a date as YYYY-MM.
func FormatYearMonth(t time.Time) string {
	return t.Format(YearMonthLayout)
}

// ParseYearMonth accepts "YYYY-MM" or "YYYY-MM-DD" and returns the first of
// that month.
func ParseYearMonth(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range []string{YearMonthLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return FirstOfMonth(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM or YYYY-MM-DD", s)
}

// ParseDate accepts "YYYY-MM-DD" and, for convenience, "YYYY-MM".
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(YearMonthLayout, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
}
