// utils/dates.go
package utils

import (
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the year-month key used by reports and the month selector.
const MonthLayout = "2006-01"

// Accepted import/input date formats.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"01/02/2006", // MM/DD/YYYY
	"02-01-2006", // DD-MM-YYYY
}

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// DateOnly keeps the calendar day of t, as seen in t's own location, at UTC midnight.
// Every stored date goes through it so string comparison in SQLite stays correct.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and DD-MM-YYYY.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q (want YYYY-MM-DD, MM/DD/YYYY or DD-MM-YYYY)", s)
}

// LooksLikeDate reports whether s is shaped like one of the accepted date formats,
// without checking that the day exists.
func LooksLikeDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case (r == '-' || r == '/') && (i == 2 || i == 4 || i == 5 || i == 7):
		default:
			return false
		}
	}
	return true
}

// ParseMonth validates a YYYY-MM key.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised month %q (want YYYY-MM)", s)
	}
	return t, nil
}
