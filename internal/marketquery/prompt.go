package marketquery

import (
	"fmt"
	"time"
)

const extractionSystemPrompt = `You are a financial data expert. Analyze the user's query and extract structured information about stock/crypto data requests. Respond with a single JSON object and nothing else.`

const extractionTemplate = `Available symbols in database: AAPL, MSFT, JPM, BTC, ETH

Company mappings:
- Apple, Apple Inc, AAPL -> AAPL
- Microsoft, Microsoft Corporation, MSFT -> MSFT
- JPMorgan, JP Morgan, JPMorgan Chase, JPM -> JPM
- Bitcoin, BTC -> BTC
- Ethereum, ETH -> ETH

Available metrics in database:
- Price data: open, high, low, close
- Volume data: volume
- Technical indicators: ma5, ma10, ma20, rsi, atr, volatility
- Change data: pct_change

Current date and time: %s

Query intents:
- price: Current/historical prices
- trend: Price trends and patterns
- comparison: Comparing multiple stocks
- volume: Trading volume analysis
- volatility: Price volatility analysis
- technical: Technical indicators (MA, RSI, ATR)
- change: Price changes and percentages
- other: General queries

Aggregation types: avg, max, min, sum, count

Query: %q

Respond with JSON matching this schema:
{"symbols": ["..."], "intent": "...", "time_range": "..." or null, "metrics": ["..."] or null, "aggregation": "..." or null}

Rules:
1. symbols: Extract only valid symbols (AAPL, MSFT, JPM, BTC, ETH). Return empty array if none found.
2. intent: Classify the query intent from the available options. Use "other" if unclear.
3. time_range: Extract time period if mentioned (e.g. "today", "last week", "30 days"), or null if not specified.
4. metrics: Extract specific data columns requested (close, rsi, ma5, volume, etc.). Use null if not specific.
5. aggregation: Extract if user wants avg/max/min/etc. Use null if not mentioned.

Examples:

"What is the current price of Apple?"
{"symbols": ["AAPL"], "intent": "price", "time_range": "today", "metrics": ["close"], "aggregation": null}

"Compare Apple and Microsoft's RSI over the last week"
{"symbols": ["AAPL", "MSFT"], "intent": "comparison", "time_range": "last week", "metrics": ["rsi"], "aggregation": null}

"How volatile has Bitcoin been this month?"
{"symbols": ["BTC"], "intent": "volatility", "time_range": "this month", "metrics": ["volatility"], "aggregation": null}

"Show 5-day moving average of Apple"
{"symbols": ["AAPL"], "intent": "technical", "time_range": null, "metrics": ["ma5"], "aggregation": null}

"Average volume of Ethereum yesterday"
{"symbols": ["ETH"], "intent": "volume", "time_range": "yesterday", "metrics": ["volume"], "aggregation": "avg"}

"Apple and Microsoft performance"
{"symbols": ["AAPL", "MSFT"], "intent": "trend", "time_range": null, "metrics": null, "aggregation": null}

"Maximum price of JPMorgan last month"
{"symbols": ["JPM"], "intent": "price", "time_range": "last month", "metrics": ["high"], "aggregation": "max"}

"Weather forecast"
{"symbols": [], "intent": "other", "time_range": null, "metrics": null, "aggregation": null}

Response:`

// buildExtractionPrompt renders the extraction prompt for one query.
func buildExtractionPrompt(query string, now time.Time) string {
	return fmt.Sprintf(extractionTemplate, now.Format(time.RFC3339), query)
}
