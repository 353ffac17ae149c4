package util

import (
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"01/02/2006",
	"2006/01/02",
}

// ParseDate tries the common price-file layouts and unix seconds.
// Returns (t, true) if any worked; the result is in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// CalendarDate builds a UTC date and reports whether the triple is a real
// calendar day. time.Date normalizes 2023-02-30 to 2023-03-02; that counts
// as invalid here.
func CalendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Weekday returns the day of week with Monday = 0 ... Sunday = 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekdayOrZero is Weekday for a y/m/d triple; invalid dates yield 0.
func WeekdayOrZero(year, month, day int) int {
	t, ok := CalendarDate(year, month, day)
	if !ok {
		return 0
	}
	return Weekday(t)
}
