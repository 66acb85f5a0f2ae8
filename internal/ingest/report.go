package ingest

import (
	"fmt"
	"strings"

	"finsight/internal/models"
	"finsight/internal/retrieval"
)

// BuildReport renders a markdown summary of the latest record for one
// symbol, suitable for indexing into the report collection so the assistant
// can retrieve recent market context.
func BuildReport(symbol string, latest models.MarketRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n", symbol)
	fmt.Fprintf(&sb, "- Price: $%.2f\n", latest.Close)
	fmt.Fprintf(&sb, "- Volume: %d\n", latest.Volume)
	if latest.Open != 0 {
		fmt.Fprintf(&sb, "- Daily Change: %+.2f%%\n", (latest.Close-latest.Open)/latest.Open*100)
	}

	sb.WriteString("\n### Technical Indicators:\n")
	if latest.MA5 != nil {
		fmt.Fprintf(&sb, "- MA(5): $%.2f\n", *latest.MA5)
	}
	if latest.MA20 != nil {
		fmt.Fprintf(&sb, "- MA(20): $%.2f\n", *latest.MA20)
	}
	if latest.RSI != nil {
		fmt.Fprintf(&sb, "- RSI: %.1f", *latest.RSI)
		switch {
		case *latest.RSI > 70:
			sb.WriteString(" *Overbought Signal*")
		case *latest.RSI < 30:
			sb.WriteString(" *Oversold Signal*")
		}
		sb.WriteString("\n")
	}
	if latest.Volatility != nil {
		fmt.Fprintf(&sb, "- Volatility: %.1f%%\n", *latest.Volatility*100)
	}
	if latest.ATR != nil {
		fmt.Fprintf(&sb, "- ATR: $%.2f\n", *latest.ATR)
	}

	fmt.Fprintf(&sb, "\nLast Update: %s\n", dateOf(latest.Timestamp))
	return sb.String()
}

// ReportDocuments converts per-symbol latest records into retrievable
// documents keyed by symbol, so each refresh replaces the previous report.
func ReportDocuments(latest map[string]models.MarketRecord) []retrieval.Document {
	docs := make([]retrieval.Document, 0, len(latest))
	for symbol, record := range latest {
		docs = append(docs, retrieval.Document{
			ID:      "report_" + symbol,
			Content: BuildReport(symbol, record),
			Metadata: map[string]string{
				"symbol":    symbol,
				"timestamp": dateOf(record.Timestamp),
			},
		})
	}
	return docs
}

func dateOf(timestamp string) string {
	if len(timestamp) >= 10 {
		return timestamp[:10]
	}
	return timestamp
}
