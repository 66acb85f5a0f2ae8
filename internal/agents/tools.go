package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"finsight/internal/marketquery"
	"finsight/internal/retrieval"
)

const financialDataToolName = "financial_data"

// assistantTools declares the tools offered to the model on every chat turn.
var assistantTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        financialDataToolName,
			Description: "Retrieve financial information for the user's question: live market data (prices, volume, technical indicators) and relevant passages from documents uploaded to this chat. Invoke whenever the user asks for financial information.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "The user's financial question, as free text"
					}
				},
				"required": ["query"]
			}`),
		},
	},
}

// QueryResolver resolves a free-text market question into a structured
// result. *marketquery.Engine satisfies it.
type QueryResolver interface {
	ResolveQuery(ctx context.Context, rawText string) marketquery.QueryResult
}

// financialDataExecutor serves financial_data tool calls for one chat: it
// fans the query out to the market-query engine and the chat's document
// collection and merges both contexts for the model.
type financialDataExecutor struct {
	engine     QueryResolver
	documents  retrieval.Collection
	retrievalK int
	log        zerolog.Logger
}

func (e *financialDataExecutor) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	if toolName != financialDataToolName {
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}

	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}

	marketResult := "No relevant financial data found."
	documentResult := "No relevant documents found."

	result := e.engine.ResolveQuery(ctx, params.Query)
	if result.RecordCount > 0 || len(result.Summary) > 0 {
		if encoded, err := json.Marshal(result); err == nil {
			marketResult = string(encoded)
		} else {
			e.log.Error().Err(err).Msg("failed to encode market result")
		}
	}

	if e.documents != nil {
		docs, err := e.documents.Query(ctx, params.Query, e.retrievalK)
		if err != nil {
			e.log.Error().Err(err).Msg("document retrieval failed")
		} else if len(docs) > 0 {
			parts := make([]string, len(docs))
			for i, d := range docs {
				parts[i] = d.Content
			}
			documentResult = strings.Join(parts, "\n")
		}
	}

	e.log.Debug().
		Str("query", params.Query).
		Int("records", result.RecordCount).
		Msg("financial_data tool executed")

	return fmt.Sprintf("# Financial Market Data Results:\n%s\n\n# Financial Document Results:\n%s",
		marketResult, documentResult), nil
}
