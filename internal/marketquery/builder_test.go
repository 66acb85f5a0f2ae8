package marketquery

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"finsight/internal/models"
)

func TestBuildQuerySingleSymbol(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols: []string{"AAPL"},
		Intent:  models.IntentPrice,
		Metrics: []string{"close"},
	}, testNow)

	want := "SELECT symbol, timestamp, close FROM market_data WHERE symbol IN (?) ORDER BY timestamp DESC LIMIT 50"
	if plan.SQL != want {
		t.Errorf("SQL = %q, want %q", plan.SQL, want)
	}
	if plan.PerSymbol {
		t.Error("single-symbol plan marked per-symbol")
	}
	if !reflect.DeepEqual(plan.Args, []any{"AAPL"}) {
		t.Errorf("args = %v, want [AAPL]", plan.Args)
	}
}

func TestBuildQueryIntentDefaults(t *testing.T) {
	tests := []struct {
		intent models.QueryIntent
		want   string
	}{
		{models.IntentPrice, "symbol, timestamp, open, high, low, close"},
		{models.IntentVolume, "symbol, timestamp, volume, close"},
		{models.IntentVolatility, "symbol, timestamp, volatility, close, atr"},
		{models.IntentTechnical, "symbol, timestamp, ma5, ma10, ma20, rsi, atr"},
		{models.IntentTrend, "symbol, timestamp, close, ma5, ma20, pct_change"},
		{models.IntentChange, "symbol, timestamp, close, pct_change, open"},
		{models.IntentOther, "symbol, timestamp, open, high, low, close, volume"},
		{"", "symbol, timestamp, open, high, low, close, volume"},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			plan := BuildQuery(models.QueryExtraction{
				Symbols: []string{"AAPL"},
				Intent:  tt.intent,
			}, testNow)
			if !strings.HasPrefix(plan.SQL, "SELECT "+tt.want+" FROM") {
				t.Errorf("SQL = %q, want columns %q", plan.SQL, tt.want)
			}
		})
	}
}

func TestBuildQueryDeduplicatesMetrics(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols: []string{"AAPL"},
		Intent:  models.IntentPrice,
		Metrics: []string{"close", "symbol", "close", "rsi"},
	}, testNow)

	if !strings.HasPrefix(plan.SQL, "SELECT symbol, timestamp, close, rsi FROM") {
		t.Errorf("SQL = %q, want deduplicated columns", plan.SQL)
	}
}

func TestBuildQueryAggregation(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols:     []string{"ETH"},
		Intent:      models.IntentVolume,
		Metrics:     []string{"volume"},
		Aggregation: "avg",
	}, testNow)

	want := "SELECT symbol, AVG(volume) AS avg_volume FROM market_data WHERE symbol IN (?) GROUP BY symbol"
	if plan.SQL != want {
		t.Errorf("SQL = %q, want %q", plan.SQL, want)
	}
	if strings.Contains(plan.SQL, "LIMIT") {
		t.Error("aggregated query carries a LIMIT")
	}
}

func TestBuildQueryUnknownAggregationBypassed(t *testing.T) {
	// "count" is outside the grouping set and must behave as no aggregation.
	plan := BuildQuery(models.QueryExtraction{
		Symbols:     []string{"AAPL"},
		Intent:      models.IntentPrice,
		Aggregation: "count",
	}, testNow)

	if strings.Contains(plan.SQL, "COUNT(") || strings.Contains(plan.SQL, "GROUP BY") {
		t.Errorf("SQL = %q, want no aggregation applied", plan.SQL)
	}
	if !strings.Contains(plan.SQL, "LIMIT 50") {
		t.Errorf("SQL = %q, want default limit", plan.SQL)
	}
}

func TestBuildQueryComparisonFanOut(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols:   []string{"AAPL", "MSFT"},
		Intent:    models.IntentComparison,
		TimeRange: "last week",
	}, testNow)

	if !plan.PerSymbol {
		t.Fatal("multi-symbol comparison must be a per-symbol plan")
	}
	want := "SELECT symbol, timestamp, close, rsi, ma5, ma20, volume FROM market_data WHERE symbol = ? AND timestamp >= ? ORDER BY timestamp DESC LIMIT 25"
	if plan.SQL != want {
		t.Errorf("SQL = %q, want %q", plan.SQL, want)
	}
	if !reflect.DeepEqual(plan.Symbols, []string{"AAPL", "MSFT"}) {
		t.Errorf("symbols = %v", plan.Symbols)
	}
	// Plan args hold only the time parameters; the symbol is bound per
	// sub-query by the executor.
	if !reflect.DeepEqual(plan.Args, []any{"2025-03-05"}) {
		t.Errorf("args = %v, want time cutoff only", plan.Args)
	}
}

func TestBuildQueryComparisonSingleSymbol(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols: []string{"AAPL"},
		Intent:  models.IntentComparison,
	}, testNow)

	if plan.PerSymbol {
		t.Error("one-symbol comparison must not fan out")
	}
	if !strings.Contains(plan.SQL, "symbol IN (?)") {
		t.Errorf("SQL = %q, want IN clause", plan.SQL)
	}
}

func TestBuildQueryEmptySymbols(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{Intent: models.IntentPrice}, testNow)

	if strings.Contains(plan.SQL, "WHERE") {
		t.Errorf("SQL = %q, want no WHERE clause", plan.SQL)
	}
	if !strings.Contains(plan.SQL, "LIMIT 50") {
		t.Errorf("SQL = %q, want bounded result", plan.SQL)
	}
}

func TestBuildQueryTimeFilterCombined(t *testing.T) {
	plan := BuildQuery(models.QueryExtraction{
		Symbols:   []string{"BTC", "ETH"},
		Intent:    models.IntentPrice,
		TimeRange: "yesterday",
	}, testNow)

	want := "SELECT symbol, timestamp, open, high, low, close FROM market_data WHERE symbol IN (?, ?) AND timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC LIMIT 50"
	if plan.SQL != want {
		t.Errorf("SQL = %q, want %q", plan.SQL, want)
	}
	if !reflect.DeepEqual(plan.Args, []any{"BTC", "ETH", "2025-03-11", "2025-03-12"}) {
		t.Errorf("args = %v", plan.Args)
	}
}

// Property: without aggregation the column list always starts with
// "symbol, timestamp" and contains no duplicates.
func TestProperty_ColumnListShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	knownColumns := []string{"open", "high", "low", "close", "volume", "ma5", "ma10", "ma20", "rsi", "atr", "volatility", "pct_change", "symbol", "timestamp"}
	intents := []models.QueryIntent{
		models.IntentPrice, models.IntentTrend, models.IntentComparison,
		models.IntentVolume, models.IntentVolatility, models.IntentTechnical,
		models.IntentChange, models.IntentOther,
	}

	metricGen := gen.SliceOf(gen.IntRange(0, len(knownColumns)-1).Map(func(i int) string {
		return knownColumns[i]
	}))
	intentGen := gen.IntRange(0, len(intents)-1).Map(func(i int) models.QueryIntent {
		return intents[i]
	})

	properties.Property("column list starts with keys and has no duplicates", prop.ForAll(
		func(intent models.QueryIntent, metrics []string) bool {
			extraction := models.QueryExtraction{
				Symbols: []string{"AAPL"},
				Intent:  intent,
				Metrics: metrics,
			}
			columns := selectColumns(extraction)

			if len(columns) < 2 || columns[0] != "symbol" || columns[1] != "timestamp" {
				return false
			}
			seen := make(map[string]bool)
			for _, c := range columns {
				if seen[c] {
					return false
				}
				seen[c] = true
			}
			return true
		},
		intentGen,
		metricGen,
	))

	properties.TestingRun(t)
}
