// Package dates normalises boundary date-time strings to date-only values.
//
// Every instant is converted to UTC before its calendar date is taken, so two
// inputs describing the same instant always land on the same day regardless
// of the offset they were written with.
package dates

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Parse accepts an RFC 3339 date-time or a plain YYYY-MM-DD date.
func Parse(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, fmt.Errorf("empty date")
	}

	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Of(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("invalid date %q: expected RFC 3339 date-time or YYYY-MM-DD", s)
}

// Of returns the UTC calendar date of t.
func Of(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

// Midnight returns d as a time.Time at 00:00 UTC.
func Midnight(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// Format renders d as an RFC 3339 date-time at UTC midnight.
func Format(d civil.Date) string {
	return Midnight(d).Format(time.RFC3339)
}

// Weekday returns the day of the week for d.
func Weekday(d civil.Date) time.Weekday {
	return Midnight(d).Weekday()
}

// IsWeekend reports whether d is a Saturday or Sunday.
func IsWeekend(d civil.Date) bool {
	wd := Weekday(d)
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to civil.Date) int {
	return to.DaysSince(from)
}
