package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the year-month layout shared by automation keys and dates.
const MonthLayout = "2006-01"

// Month is a calendar year-month such as "2026-03".
type Month string

// MonthOf returns the year-month of t in t's own location.
func MonthOf(t time.Time) Month {
	return Month(t.Format(MonthLayout))
}

// ParseMonth validates a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return "", fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return Month(s), nil
}

func (m Month) String() string {
	return string(m)
}

// Includes reports whether a transaction or shift date falls in the month.
func (m Month) Includes(date string) bool {
	return m != "" && strings.HasPrefix(date, string(m))
}

// DayStamp formats the automation timestamp for a trigger day of the month.
func (m Month) DayStamp(day int) string {
	return fmt.Sprintf("%s-%02dT09:00", m, day)
}

// TimestampLayout is the minute-precision layout transactions are dated with.
const TimestampLayout = "2006-01-02T15:04"

// Timestamp formats t for a transaction date.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
