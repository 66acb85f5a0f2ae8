// Package marketquery converts free-text financial questions into
// parameterized SQL against the market-data store and summarizes the
// results.
package marketquery

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeFilter is a SQL predicate fragment over the timestamp column. A zero
// TimeFilter means "no time constraint".
type TimeFilter struct {
	Expr string
	Args []any
}

// Empty reports whether the filter carries no constraint.
func (f TimeFilter) Empty() bool {
	return f.Expr == ""
}

const isoDate = "2006-01-02"

var (
	dayPattern   = regexp.MustCompile(`^(\d+)\s*days?`)
	weekPattern  = regexp.MustCompile(`^(\d+)\s*weeks?`)
	monthPattern = regexp.MustCompile(`^(\d+)\s*months?`)
)

// ResolveTimeRange maps a natural-language time phrase to a timestamp
// predicate. Unrecognized phrases resolve to a zero TimeFilter; callers
// must treat that as "no time filter", not an error. The function is pure:
// all date arithmetic is anchored to the injected now.
func ResolveTimeRange(phrase string, now time.Time) TimeFilter {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return TimeFilter{}
	}

	today := startOfDay(now)

	switch phrase {
	case "today":
		return lowerBound(today)
	case "yesterday":
		return bounded(today.AddDate(0, 0, -1), today)
	case "last week":
		return lowerBound(today.AddDate(0, 0, -7))
	case "this week":
		start := startOfWeek(today)
		return bounded(start, start.AddDate(0, 0, 7))
	case "last month":
		return lowerBound(today.AddDate(0, -1, 0))
	case "this month":
		return lowerBound(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()))
	case "last year":
		return lowerBound(today.AddDate(-1, 0, 0))
	case "this year":
		return lowerBound(time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()))
	}

	if m := dayPattern.FindStringSubmatch(phrase); m != nil {
		days, _ := strconv.Atoi(m[1])
		return lowerBound(today.AddDate(0, 0, -days))
	}
	if m := weekPattern.FindStringSubmatch(phrase); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return lowerBound(today.AddDate(0, 0, -weeks*7))
	}
	if m := monthPattern.FindStringSubmatch(phrase); m != nil {
		months, _ := strconv.Atoi(m[1])
		return lowerBound(today.AddDate(0, -months, 0))
	}

	return TimeFilter{}
}

func lowerBound(t time.Time) TimeFilter {
	return TimeFilter{
		Expr: "timestamp >= ?",
		Args: []any{t.Format(isoDate)},
	}
}

func bounded(from, to time.Time) TimeFilter {
	return TimeFilter{
		Expr: "timestamp >= ? AND timestamp < ?",
		Args: []any{from.Format(isoDate), to.Format(isoDate)},
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
