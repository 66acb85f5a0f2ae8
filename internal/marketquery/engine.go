package marketquery

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"finsight/internal/logging"
	"finsight/internal/models"
	"finsight/internal/store"
)

// QueryResult is the structured response for one resolved market question.
// Callers always receive one of these; failures are carried in Status and
// Error rather than raised.
type QueryResult struct {
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	QueryInfo   models.QueryInfo `json:"query_info"`
	SQL         string           `json:"sql_query,omitempty"`
	RecordCount int              `json:"record_count"`
	Data        []store.Row      `json:"data"`
	Summary     map[string]any   `json:"summary,omitempty"`
	Timestamp   string           `json:"timestamp"`
}

// RowSelector is the read surface the engine needs from the market store.
type RowSelector interface {
	Select(ctx context.Context, query string, args []any) ([]store.Row, error)
}

// QueryExtractor converts free text into a structured extraction.
type QueryExtractor interface {
	Extract(ctx context.Context, query string) (models.QueryExtraction, error)
}

// Engine resolves free-text market questions: extraction, query building,
// execution, and summarization.
type Engine struct {
	store     RowSelector
	extractor QueryExtractor
	now       func() time.Time
	log       zerolog.Logger
}

// NewEngine creates a query engine over the given store and extractor.
func NewEngine(st RowSelector, extractor QueryExtractor, log zerolog.Logger) *Engine {
	return &Engine{
		store:     st,
		extractor: extractor,
		now:       time.Now,
		log:       log.With().Str("component", "marketquery").Logger(),
	}
}

// ResolveQuery is the single entry point for callers: it extracts, builds,
// executes, and strips the SQL text from the result so raw query strings
// never reach end users. An extraction with no recognized symbols yields a
// degenerate empty result without touching the store.
func (e *Engine) ResolveQuery(ctx context.Context, rawText string) QueryResult {
	extraction, err := e.extractor.Extract(ctx, rawText)
	if err != nil || !extraction.HasSymbols() {
		if err != nil {
			e.log.Warn().Err(err).Str("query", rawText).Msg("extraction failed, returning empty result")
		}
		return QueryResult{
			Status:    models.StatusEmpty,
			QueryInfo: queryInfo(extraction),
			Data:      []store.Row{},
			Summary:   map[string]any{"message": "No data found for the specified criteria"},
			Timestamp: e.now().Format(time.RFC3339),
		}
	}

	result := e.Execute(ctx, extraction)
	result.SQL = ""
	return result
}

// Execute runs the plan compiled from the extraction and summarizes the
// result. Store failures produce a status:"error" result, never an error
// return.
func (e *Engine) Execute(ctx context.Context, extraction models.QueryExtraction) QueryResult {
	plan := BuildQuery(extraction, e.now())
	log := logging.WithIntent(e.log, string(extraction.Intent))

	log.Debug().
		Str("sql", plan.SQL).
		Bool("per_symbol", plan.PerSymbol).
		Msg("executing market query")

	var (
		data []store.Row
		err  error
	)
	if plan.PerSymbol {
		data, err = e.executeFanOut(ctx, plan)
	} else {
		data, err = e.store.Select(ctx, plan.SQL, plan.Args)
	}
	if err != nil {
		log.Error().Err(err).Str("sql", plan.SQL).Msg("market query failed")
		return QueryResult{
			Status:    models.StatusError,
			Error:     err.Error(),
			QueryInfo: queryInfo(extraction),
			Timestamp: e.now().Format(time.RFC3339),
		}
	}
	if data == nil {
		data = []store.Row{}
	}

	sql := plan.SQL
	if plan.PerSymbol {
		sql = fmt.Sprintf("Multiple queries executed for %d symbols: %s", len(plan.Symbols), plan.SQL)
	}

	return QueryResult{
		Status:      models.StatusSuccess,
		QueryInfo:   queryInfo(extraction),
		SQL:         sql,
		RecordCount: len(data),
		Data:        data,
		Summary:     e.summarize(extraction, data),
		Timestamp:   e.now().Format(time.RFC3339),
	}
}

// executeFanOut runs the per-symbol plan once for each symbol and merges the
// results, sorted by (symbol, timestamp) descending. The sub-queries are
// individually atomic but not mutually isolated; a concurrent ingest refresh
// may leave different symbols on slightly different snapshots.
func (e *Engine) executeFanOut(ctx context.Context, plan QueryPlan) ([]store.Row, error) {
	var merged []store.Row
	for _, symbol := range plan.Symbols {
		args := append([]any{symbol}, plan.Args...)
		rows, err := e.store.Select(ctx, plan.SQL, args)
		if err != nil {
			return nil, fmt.Errorf("query for %s failed: %w", symbol, err)
		}
		merged = append(merged, rows...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		si, sj := merged[i].String("symbol"), merged[j].String("symbol")
		if si != sj {
			return si > sj
		}
		return merged[i].String("timestamp") > merged[j].String("timestamp")
	})

	return merged, nil
}

func queryInfo(extraction models.QueryExtraction) models.QueryInfo {
	return models.QueryInfo{
		Symbols:     extraction.Symbols,
		Intent:      extraction.Intent,
		TimeRange:   extraction.TimeRange,
		Metrics:     extraction.Metrics,
		Aggregation: extraction.Aggregation,
	}
}

// summarize produces the intent-specific result summary. Any panic during
// summary construction degrades to a generic count message; the raw data is
// returned regardless.
func (e *Engine) summarize(extraction models.QueryExtraction, data []store.Row) (summary map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Interface("panic", r).Msg("summary generation failed")
			summary = map[string]any{"message": fmt.Sprintf("Retrieved %d records", len(data))}
		}
	}()

	if len(data) == 0 {
		return map[string]any{"message": "No data found for the specified criteria"}
	}

	summary = map[string]any{}

	switch extraction.Intent {
	case models.IntentPrice:
		if extraction.Aggregation != "" {
			summary["message"] = fmt.Sprintf("Price analysis with %s aggregation", extraction.Aggregation)
		} else {
			latest := latestPerSymbol(data, func(r store.Row) (any, bool) {
				return r.Get("close")
			})
			summary["latest_prices"] = latest
			summary["message"] = fmt.Sprintf("Current prices for %d symbols", len(latest))
		}

	case models.IntentComparison:
		symbols := distinctSymbols(data)
		summary["symbols_compared"] = symbols
		summary["message"] = fmt.Sprintf("Comparison data for %d symbols", len(symbols))

		latest := make(map[string]map[string]any)
		for _, row := range data {
			symbol := row.String("symbol")
			if symbol == "" {
				continue
			}
			if _, seen := latest[symbol]; seen {
				continue
			}
			values := make(map[string]any)
			for _, col := range row.Columns() {
				if col == "id" {
					continue
				}
				values[col] = row.Value(col)
			}
			latest[symbol] = values
		}
		summary["latest_values"] = latest

	case models.IntentVolatility:
		if avg, ok := columnMean(data, "volatility"); ok {
			rounded := math.Round(avg*10000) / 10000
			summary["average_volatility"] = rounded
			summary["message"] = fmt.Sprintf("Average volatility: %.4f", avg)
		}

	case models.IntentTechnical:
		summary["message"] = fmt.Sprintf("Technical indicators for %d symbols", len(distinctSymbols(data)))
		technical := make(map[string]map[string]any)
		for _, row := range data {
			symbol := row.String("symbol")
			if symbol == "" {
				continue
			}
			if _, seen := technical[symbol]; seen {
				continue
			}
			values := make(map[string]any)
			for _, metric := range []string{"ma5", "ma10", "ma20", "rsi", "atr"} {
				if v, ok := row.Get(metric); ok && v != nil {
					values[metric] = v
				}
			}
			technical[symbol] = values
		}
		summary["technical_indicators"] = technical

	case models.IntentVolume:
		if extraction.Aggregation != "" && data[0].Value("avg_volume") != nil {
			summary["message"] = "Volume analysis with aggregation"
		} else if avg, ok := columnMean(data, "volume"); ok {
			summary["average_volume"] = int64(avg)
			summary["message"] = fmt.Sprintf("Average volume: %.0f", avg)
		}

	default:
		summary["message"] = fmt.Sprintf("Retrieved %d records", len(data))
	}

	if _, ok := summary["message"]; !ok {
		summary["message"] = fmt.Sprintf("Retrieved %d records", len(data))
	}
	if extraction.TimeRange != "" {
		summary["time_range"] = extraction.TimeRange
	}

	return summary
}

// latestPerSymbol maps each symbol to the value of the first row it appears
// in; data is ordered newest-first so this is the most recent value.
func latestPerSymbol(data []store.Row, pick func(store.Row) (any, bool)) map[string]any {
	latest := make(map[string]any)
	for _, row := range data {
		symbol := row.String("symbol")
		if symbol == "" {
			continue
		}
		if _, seen := latest[symbol]; seen {
			continue
		}
		if v, ok := pick(row); ok {
			latest[symbol] = v
		}
	}
	return latest
}

func distinctSymbols(data []store.Row) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, row := range data {
		symbol := row.String("symbol")
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	return symbols
}

// columnMean averages the non-null numeric values of a column. The second
// return is false when no usable values exist.
func columnMean(data []store.Row, col string) (float64, bool) {
	var sum float64
	var count int
	for _, row := range data {
		if v, ok := asFloat(row.Value(col)); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
