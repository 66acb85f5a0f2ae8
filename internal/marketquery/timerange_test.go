package marketquery

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Wednesday, fixed reference point for all date arithmetic.
var testNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

func TestResolveTimeRangeVocabulary(t *testing.T) {
	tests := []struct {
		phrase   string
		wantExpr string
		wantArgs []any
	}{
		{"today", "timestamp >= ?", []any{"2025-03-12"}},
		{"yesterday", "timestamp >= ? AND timestamp < ?", []any{"2025-03-11", "2025-03-12"}},
		{"last week", "timestamp >= ?", []any{"2025-03-05"}},
		{"this week", "timestamp >= ? AND timestamp < ?", []any{"2025-03-10", "2025-03-17"}},
		{"last month", "timestamp >= ?", []any{"2025-02-12"}},
		{"this month", "timestamp >= ?", []any{"2025-03-01"}},
		{"last year", "timestamp >= ?", []any{"2024-03-12"}},
		{"this year", "timestamp >= ?", []any{"2025-01-01"}},
		{"7 days", "timestamp >= ?", []any{"2025-03-05"}},
		{"30 days", "timestamp >= ?", []any{"2025-02-10"}},
		{"1 day", "timestamp >= ?", []any{"2025-03-11"}},
		{"2 weeks", "timestamp >= ?", []any{"2025-02-26"}},
		{"3 months", "timestamp >= ?", []any{"2024-12-12"}},
		{"Today", "timestamp >= ?", []any{"2025-03-12"}},
		{"  last week  ", "timestamp >= ?", []any{"2025-03-05"}},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got := ResolveTimeRange(tt.phrase, testNow)
			if got.Expr != tt.wantExpr {
				t.Errorf("expr = %q, want %q", got.Expr, tt.wantExpr)
			}
			if len(got.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", got.Args, tt.wantArgs)
			}
			for i := range got.Args {
				if got.Args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, got.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestResolveTimeRangeUnrecognized(t *testing.T) {
	for _, phrase := range []string{"", "next week", "someday", "q4 2024", "days 7"} {
		got := ResolveTimeRange(phrase, testNow)
		if !got.Empty() || len(got.Args) != 0 {
			t.Errorf("ResolveTimeRange(%q) = %+v, want zero filter", phrase, got)
		}
	}
}

func TestResolveTimeRangeWeekStartsMonday(t *testing.T) {
	// A Sunday must resolve "this week" back to the previous Monday.
	sunday := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	got := ResolveTimeRange("this week", sunday)
	if got.Args[0] != "2025-03-10" {
		t.Errorf("week start = %v, want 2025-03-10", got.Args[0])
	}

	monday := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	got = ResolveTimeRange("this week", monday)
	if got.Args[0] != "2025-03-10" {
		t.Errorf("week start on Monday = %v, want 2025-03-10", got.Args[0])
	}
}

// Property: ResolveTimeRange never panics and either returns a predicate with
// matching placeholder and argument counts, or a fully zero filter.
func TestProperty_ResolveTimeRangeTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("resolution is total and placeholder-consistent", prop.ForAll(
		func(phrase string) bool {
			filter := ResolveTimeRange(phrase, testNow)
			if filter.Empty() {
				return len(filter.Args) == 0
			}
			placeholders := 0
			for _, c := range filter.Expr {
				if c == '?' {
					placeholders++
				}
			}
			return placeholders == len(filter.Args)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
