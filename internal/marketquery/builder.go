package marketquery

import (
	"fmt"
	"strings"
	"time"

	"finsight/internal/models"
	"finsight/internal/store"
)

const (
	// defaultLimit bounds non-aggregated single queries.
	defaultLimit = 50
	// perSymbolLimit bounds each sub-query of a multi-symbol comparison so
	// every compared symbol contributes the same number of rows.
	perSymbolLimit = 25
)

// QueryPlan is a compiled, parameterized read plan against the market table.
// When PerSymbol is true, SQL contains a single "symbol = ?" placeholder and
// the executor runs it once per entry in Symbols, merging the results.
type QueryPlan struct {
	SQL       string
	Args      []any
	PerSymbol bool
	Symbols   []string
}

// aggregations that wrap columns and collapse rows per symbol. Anything else
// (e.g. "count") is treated as no aggregation.
var groupingAggregations = map[string]bool{
	"avg": true,
	"sum": true,
	"max": true,
	"min": true,
}

// defaultColumns maps an intent to the columns selected when the extraction
// names no explicit metrics.
var defaultColumns = map[models.QueryIntent][]string{
	models.IntentPrice:      {"open", "high", "low", "close"},
	models.IntentVolume:     {"volume", "close"},
	models.IntentVolatility: {"volatility", "close", "atr"},
	models.IntentTechnical:  {"ma5", "ma10", "ma20", "rsi", "atr"},
	models.IntentTrend:      {"close", "ma5", "ma20", "pct_change"},
	models.IntentComparison: {"close", "rsi", "ma5", "ma20", "volume"},
	models.IntentChange:     {"close", "pct_change", "open"},
}

// BuildQuery compiles an extraction into a parameterized query plan. It is a
// pure function: the time predicate is anchored to the supplied now, and no
// I/O happens here. Empty symbol sets are legal and simply omit the symbol
// filter.
func BuildQuery(extraction models.QueryExtraction, now time.Time) QueryPlan {
	columns := selectColumns(extraction)
	grouping := groupingAggregations[strings.ToLower(extraction.Aggregation)]
	selectClause := buildSelectClause(columns, extraction.Aggregation, grouping)
	filter := ResolveTimeRange(extraction.TimeRange, now)

	if extraction.Intent == models.IntentComparison && len(extraction.Symbols) > 1 {
		return buildComparisonPlan(selectClause, filter, extraction.Symbols)
	}

	var conditions []string
	var args []any

	if len(extraction.Symbols) > 0 {
		placeholders := strings.Repeat("?, ", len(extraction.Symbols))
		conditions = append(conditions,
			fmt.Sprintf("symbol IN (%s)", placeholders[:len(placeholders)-2]))
		for _, s := range extraction.Symbols {
			args = append(args, s)
		}
	}
	if !filter.Empty() {
		conditions = append(conditions, filter.Expr)
		args = append(args, filter.Args...)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectClause, store.MarketTable)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	if grouping {
		sb.WriteString(" GROUP BY symbol")
	} else {
		fmt.Fprintf(&sb, " ORDER BY timestamp DESC LIMIT %d", defaultLimit)
	}

	return QueryPlan{SQL: sb.String(), Args: args, Symbols: extraction.Symbols}
}

// buildComparisonPlan builds one bounded query per symbol so every compared
// symbol contributes a balanced number of rows; a single IN query with a
// global LIMIT would starve symbols with less history.
func buildComparisonPlan(selectClause string, filter TimeFilter, symbols []string) QueryPlan {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE symbol = ?", selectClause, store.MarketTable)
	if !filter.Empty() {
		sb.WriteString(" AND ")
		sb.WriteString(filter.Expr)
	}
	fmt.Fprintf(&sb, " ORDER BY timestamp DESC LIMIT %d", perSymbolLimit)

	return QueryPlan{
		SQL:       sb.String(),
		Args:      filter.Args,
		PerSymbol: true,
		Symbols:   symbols,
	}
}

// selectColumns applies the column policy: explicit metrics win, otherwise
// the intent's default set, with symbol and timestamp always leading and
// duplicates collapsed in first-seen order.
func selectColumns(extraction models.QueryExtraction) []string {
	columns := []string{"symbol", "timestamp"}
	if len(extraction.Metrics) > 0 {
		columns = append(columns, extraction.Metrics...)
	} else if defaults, ok := defaultColumns[extraction.Intent]; ok {
		columns = append(columns, defaults...)
	} else {
		columns = append(columns, "open", "high", "low", "close", "volume")
	}
	return dedupe(columns)
}

// buildSelectClause renders the column list, wrapping value columns in the
// aggregation function when one of the grouping aggregations is requested.
// The timestamp key is dropped under aggregation since rows collapse per
// symbol.
func buildSelectClause(columns []string, aggregation string, grouping bool) string {
	if !grouping {
		return strings.Join(columns, ", ")
	}

	agg := strings.ToUpper(aggregation)
	wrapped := []string{"symbol"}
	for _, col := range columns {
		if col == "symbol" || col == "timestamp" {
			continue
		}
		wrapped = append(wrapped,
			fmt.Sprintf("%s(%s) AS %s_%s", agg, col, strings.ToLower(aggregation), col))
	}
	return strings.Join(wrapped, ", ")
}

func dedupe(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := columns[:0]
	for _, c := range columns {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
