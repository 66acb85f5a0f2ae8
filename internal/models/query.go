package models

// QueryIntent classifies the purpose of a market-data question.
type QueryIntent string

const (
	IntentPrice      QueryIntent = "price"
	IntentTrend      QueryIntent = "trend"
	IntentComparison QueryIntent = "comparison"
	IntentVolume     QueryIntent = "volume"
	IntentVolatility QueryIntent = "volatility"
	IntentTechnical  QueryIntent = "technical"
	IntentChange     QueryIntent = "change"
	IntentOther      QueryIntent = "other"
)

// ValidIntent reports whether s is a recognized intent value.
func ValidIntent(s string) bool {
	switch QueryIntent(s) {
	case IntentPrice, IntentTrend, IntentComparison, IntentVolume,
		IntentVolatility, IntentTechnical, IntentChange, IntentOther:
		return true
	}
	return false
}

// QueryExtraction is the structured representation of one free-text market
// question. It lives for a single query-resolution cycle and is never
// persisted.
type QueryExtraction struct {
	Symbols     []string    `json:"symbols"`
	Intent      QueryIntent `json:"intent,omitempty"`
	TimeRange   string      `json:"time_range,omitempty"`
	Metrics     []string    `json:"metrics,omitempty"`
	Aggregation string      `json:"aggregation,omitempty"`
}

// HasSymbols reports whether the extraction recognized at least one symbol.
func (e QueryExtraction) HasSymbols() bool {
	return len(e.Symbols) > 0
}

// QueryInfo echoes the extraction fields back to the caller in query results.
type QueryInfo struct {
	Symbols     []string    `json:"symbols"`
	Intent      QueryIntent `json:"intent,omitempty"`
	TimeRange   string      `json:"time_range,omitempty"`
	Metrics     []string    `json:"metrics,omitempty"`
	Aggregation string      `json:"aggregation,omitempty"`
}

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEmpty   = "empty"
)
