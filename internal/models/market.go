// Package models defines the core data types shared across the application.
package models

import (
	"fmt"
	"time"
)

// MarketRecord is one row of market data for a (symbol, calendar day) pair.
// Indicator fields are pointers because early history lacks enough data to
// compute them (e.g. the first 4 days have no ma5).
type MarketRecord struct {
	Symbol     string    `json:"symbol"`
	Timestamp  string    `json:"timestamp"` // ISO-8601
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	MA5        *float64  `json:"ma5"`
	MA10       *float64  `json:"ma10"`
	MA20       *float64  `json:"ma20"`
	RSI        *float64  `json:"rsi"`
	Volatility *float64  `json:"volatility"`
	ATR        *float64  `json:"atr"`
	PctChange  *float64  `json:"pct_change"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Validate checks the invariants enforced at ingestion time.
func (r *MarketRecord) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if r.Open <= 0 || r.High <= 0 || r.Low <= 0 || r.Close <= 0 {
		return fmt.Errorf("prices must be positive for %s at %s", r.Symbol, r.Timestamp)
	}
	if r.High < r.Low {
		return fmt.Errorf("high %.4f below low %.4f for %s at %s", r.High, r.Low, r.Symbol, r.Timestamp)
	}
	if r.Volume < 0 {
		return fmt.Errorf("volume must be non-negative for %s at %s", r.Symbol, r.Timestamp)
	}
	return nil
}

// MarketSummary holds aggregate statistics about the stored market data.
type MarketSummary struct {
	TotalRecords  int               `json:"total_records"`
	UniqueSymbols int               `json:"unique_symbols"`
	LatestUpdate  string            `json:"latest_update"`
	SymbolStats   []SymbolStat      `json:"symbol_statistics"`
}

// SymbolStat holds per-symbol record statistics.
type SymbolStat struct {
	Symbol     string `json:"symbol"`
	Records    int    `json:"records"`
	LatestData string `json:"latest_data"`
}
