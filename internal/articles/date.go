package articles

import (
	"math/rand/v2"
	"strings"
	"time"
)

// OldestDate is the lower bound for random date navigation.
const OldestDate = "2018-01-01"

// ParseDate canonicalizes a calendar day to YYYY-MM-DD. Slash separators
// (2019/09/08) are accepted.
func ParseDate(s string) (string, error) {
	t, err := parseDay(s)
	if err != nil {
		return "", err
	}
	return t.Format(time.DateOnly), nil
}

func parseDay(s string) (time.Time, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	t, err := time.Parse(time.DateOnly, norm)
	if err != nil {
		return time.Time{}, &InvalidDateError{Input: s}
	}
	return t, nil
}

// Today returns the calendar day of now in its own location.
func Today(now time.Time) string {
	return now.Format(time.DateOnly)
}

// Navigate resolves a relative move from date: "prev" and "next" step one
// day, "rand" picks a uniformly random day between OldestDate and today.
func Navigate(date, diff string, now time.Time) (string, error) {
	day, err := parseDay(date)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(strings.TrimSpace(diff)) {
	case "prev":
		day = day.AddDate(0, 0, -1)
	case "next":
		day = day.AddDate(0, 0, 1)
	case "rand":
		oldest, _ := time.Parse(time.DateOnly, OldestDate)
		today, _ := time.Parse(time.DateOnly, Today(now))
		span := int(today.Sub(oldest).Hours() / 24)
		if span < 0 {
			span = 0
		}
		day = oldest.AddDate(0, 0, rand.IntN(span+1))
	default:
		return "", &ValidationError{Field: "diff", Reason: "must be prev, next or rand"}
	}
	return day.Format(time.DateOnly), nil
}

// dateRange lists every day from start to end inclusive.
func dateRange(start, end string) ([]string, error) {
	from, err := parseDay(start)
	if err != nil {
		return nil, err
	}
	to, err := parseDay(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "end", Reason: "before start"}
	}

	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(time.DateOnly))
	}
	return days, nil
}
