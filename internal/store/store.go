// Package store provides data persistence interfaces and implementations.
package store

import (
	"bytes"
	"context"
	"encoding/json"

	"finsight/internal/models"
)

// MarketTable is the name of the time-series table.
const MarketTable = "market_data"

// MarketStore defines the interface for the market-data time-series store.
type MarketStore interface {
	// SaveRecords upserts records keyed by (symbol, timestamp) and returns
	// the number of rows written.
	SaveRecords(ctx context.Context, records []models.MarketRecord) (int, error)

	// Select executes a parameterized read-only statement and returns rows
	// as ordered column-to-value mappings.
	Select(ctx context.Context, query string, args []any) ([]Row, error)

	// SymbolHistory returns records for one symbol over the trailing days,
	// newest first.
	SymbolHistory(ctx context.Context, symbol string, days int) ([]models.MarketRecord, error)

	// LatestRecords returns the most recent record for every stored symbol,
	// ordered by symbol.
	LatestRecords(ctx context.Context) ([]models.MarketRecord, error)

	// Summary returns aggregate statistics about the stored data.
	Summary(ctx context.Context) (*models.MarketSummary, error)

	// Prune deletes records older than keepDays and returns the count.
	Prune(ctx context.Context, keepDays int) (int64, error)

	// Lifecycle
	Close() error
}

// Row is an ordered mapping of column name to value. JSON marshaling
// preserves the column order of the originating query.
type Row struct {
	cols   []string
	values map[string]any
}

// NewRow creates a row from parallel column and value slices.
func NewRow(cols []string, vals []any) Row {
	values := make(map[string]any, len(cols))
	for i, c := range cols {
		if i < len(vals) {
			values[c] = vals[i]
		}
	}
	// Copy so callers can reuse their column slice between rows.
	owned := make([]string, len(cols))
	copy(owned, cols)
	return Row{cols: owned, values: values}
}

// Columns returns the column names in query order.
func (r Row) Columns() []string {
	return r.cols
}

// Get returns the value for a column and whether the column exists.
func (r Row) Get(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Value returns the value for a column, or nil if absent.
func (r Row) Value(col string) any {
	return r.values[col]
}

// String returns the string value for a column, or "" for non-strings.
func (r Row) String(col string) string {
	if s, ok := r.values[col].(string); ok {
		return s
	}
	return ""
}

// MarshalJSON renders the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[c])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a JSON object; column order follows Go's map
// iteration of the decoded object and is only used in tests.
func (r *Row) UnmarshalJSON(data []byte) error {
	values := make(map[string]any)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	r.cols = cols
	r.values = values
	return nil
}
