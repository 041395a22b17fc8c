package core

// holidays is the fixed public-holiday calendar rendered by calendar views.
var holidays = []string{
	"2026-01-01", "2026-02-15", "2026-02-16", "2026-02-17", "2026-02-18", "2026-02-19", "2026-02-20",
	"2026-02-28", "2026-04-04", "2026-04-05", "2026-05-01", "2026-06-19", "2026-09-27", "2026-09-28",
	"2026-10-10", "2026-10-25", "2026-12-25",
}

// Holidays returns a copy of the holiday calendar.
func Holidays() []string {
	return append([]string(nil), holidays...)
}

// IsHoliday reports whether a YYYY-MM-DD date is on the calendar.
func IsHoliday(date string) bool {
	for _, h := range holidays {
		if h == date {
			return true
		}
	}
	return false
}
