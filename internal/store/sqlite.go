// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"finsight/internal/models"
)

// SQLiteMarketStore implements MarketStore using SQLite.
type SQLiteMarketStore struct {
	db *sql.DB
}

// NewSQLiteMarketStore creates a new SQLite-based market-data store.
func NewSQLiteMarketStore(dbPath string) (*SQLiteMarketStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteMarketStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the market_data table and indexes.
func (s *SQLiteMarketStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS market_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		volume INTEGER,
		ma5 REAL,
		ma10 REAL,
		ma20 REAL,
		rsi REAL,
		volatility REAL,
		atr REAL,
		pct_change REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_market_symbol_timestamp ON market_data(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_market_symbol ON market_data(symbol);
	CREATE INDEX IF NOT EXISTS idx_market_timestamp ON market_data(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteMarketStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts market records keyed by (symbol, timestamp).
func (s *SQLiteMarketStore) SaveRecords(ctx context.Context, records []models.MarketRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO market_data
		(symbol, timestamp, open, high, low, close, volume,
		 ma5, ma10, ma20, rsi, volatility, atr, pct_change, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Symbol, r.Timestamp, r.Open, r.High, r.Low, r.Close, r.Volume,
			nullable(r.MA5), nullable(r.MA10), nullable(r.MA20), nullable(r.RSI),
			nullable(r.Volatility), nullable(r.ATR), nullable(r.PctChange), now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record for %s: %w", r.Symbol, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return written, nil
}

// nullable converts an optional indicator to a driver value.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Select executes a parameterized read statement and returns ordered rows.
func (s *SQLiteMarketStore) Select(ctx context.Context, query string, args []any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				raw[i] = string(b)
			}
		}
		result = append(result, NewRow(cols, raw))
	}

	return result, rows.Err()
}

// SymbolHistory returns records for one symbol over the trailing days,
// newest first.
func (s *SQLiteMarketStore) SymbolHistory(ctx context.Context, symbol string, days int) ([]models.MarketRecord, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timestamp, open, high, low, close, volume,
		       ma5, ma10, ma20, rsi, volatility, atr, pct_change
		FROM market_data
		WHERE symbol = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`, symbol, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []models.MarketRecord
	for rows.Next() {
		var r models.MarketRecord
		var ma5, ma10, ma20, rsi, volatility, atr, pctChange sql.NullFloat64
		if err := rows.Scan(&r.Symbol, &r.Timestamp, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&ma5, &ma10, &ma20, &rsi, &volatility, &atr, &pctChange); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.MA5 = optional(ma5)
		r.MA10 = optional(ma10)
		r.MA20 = optional(ma20)
		r.RSI = optional(rsi)
		r.Volatility = optional(volatility)
		r.ATR = optional(atr)
		r.PctChange = optional(pctChange)
		records = append(records, r)
	}

	return records, rows.Err()
}

// LatestRecords returns the most recent record per symbol, ordered by symbol.
func (s *SQLiteMarketStore) LatestRecords(ctx context.Context) ([]models.MarketRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timestamp, open, high, low, close, volume,
		       ma5, ma10, ma20, rsi, volatility, atr, pct_change
		FROM market_data m
		WHERE timestamp = (SELECT MAX(timestamp) FROM market_data WHERE symbol = m.symbol)
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest records: %w", err)
	}
	defer rows.Close()

	var records []models.MarketRecord
	for rows.Next() {
		var r models.MarketRecord
		var ma5, ma10, ma20, rsi, volatility, atr, pctChange sql.NullFloat64
		if err := rows.Scan(&r.Symbol, &r.Timestamp, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&ma5, &ma10, &ma20, &rsi, &volatility, &atr, &pctChange); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.MA5 = optional(ma5)
		r.MA10 = optional(ma10)
		r.MA20 = optional(ma20)
		r.RSI = optional(rsi)
		r.Volatility = optional(volatility)
		r.ATR = optional(atr)
		r.PctChange = optional(pctChange)
		records = append(records, r)
	}

	return records, rows.Err()
}

func optional(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Summary returns aggregate statistics of the stored market data.
func (s *SQLiteMarketStore) Summary(ctx context.Context) (*models.MarketSummary, error) {
	summary := &models.MarketSummary{}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM market_data").Scan(&summary.TotalRecords); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT symbol) FROM market_data").Scan(&summary.UniqueSymbols); err != nil {
		return nil, fmt.Errorf("failed to count symbols: %w", err)
	}

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx,
		"SELECT MAX(updated_at) FROM market_data").Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to read latest update: %w", err)
	}
	summary.LatestUpdate = latest.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*), MAX(timestamp)
		FROM market_data
		GROUP BY symbol
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat models.SymbolStat
		if err := rows.Scan(&stat.Symbol, &stat.Records, &stat.LatestData); err != nil {
			return nil, fmt.Errorf("failed to scan symbol stat: %w", err)
		}
		summary.SymbolStats = append(summary.SymbolStats, stat)
	}

	return summary, rows.Err()
}

// Prune deletes records older than keepDays.
func (s *SQLiteMarketStore) Prune(ctx context.Context, keepDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Format("2006-01-02")

	res, err := s.db.ExecContext(ctx, "DELETE FROM market_data WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune records: %w", err)
	}

	return res.RowsAffected()
}
