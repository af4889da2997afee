package core

import (
	"errors"
	"time"
)

// MonthLayout is the "YYYY-MM" key identifying one month table. Lexical
// order of month keys equals chronological order.
const MonthLayout = "2006-01"

var (
	ErrInvalidMonth = errors.New("invalid month, want YYYY-MM")
	ErrInvalidYear  = errors.New("invalid year, want YYYY")
)

// ParseMonth validates a month key and returns the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// MonthOf returns the month key for a date.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthsInRange expands an inclusive month interval into its month keys,
// ascending. Start must not be after end.
func MonthsInRange(start, end string) ([]string, error) {
	from, err := ParseMonth(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseMonth(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, errors.New("month range start is after end")
	}
	var months []string
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 1, 0) {
		months = append(months, MonthOf(cur))
	}
	return months, nil
}

// MonthsInYear returns the twelve month keys of a year.
func MonthsInYear(year string) ([]string, error) {
	t, err := time.Parse("2006", year)
	if err != nil {
		return nil, ErrInvalidYear
	}
	months := make([]string, 0, 12)
	for m := 0; m < 12; m++ {
		months = append(months, MonthOf(t.AddDate(0, m, 0)))
	}
	return months, nil
}
