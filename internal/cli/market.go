package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finsight/internal/marketquery"
	"finsight/internal/models"
	"finsight/internal/retrieval"
)

func newMarketCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market data operations",
		Long:  "Refresh, query, and summarize the stored market data.",
	}

	cmd.AddCommand(newMarketRefreshCmd(app))
	cmd.AddCommand(newMarketQueryCmd(app))
	cmd.AddCommand(newMarketPruneCmd(app))
	cmd.AddCommand(newMarketSummaryCmd(app))

	return cmd
}

func newMarketRefreshCmd(app *App) *cobra.Command {
	var skipReports bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest market data for configured symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.openMarketStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var reports retrieval.Collection
			if !skipReports {
				index, err := app.openVectorIndex()
				if err != nil {
					output.Warning("Report indexing disabled: %v", err)
				} else {
					defer index.Close()
					reports = retrieval.NewReportCollection(index)
				}
			}

			pipeline, err := app.newPipeline(st, reports)
			if err != nil {
				return err
			}

			output.Info("Refreshing market data for %d symbols...", len(app.Config.Symbols()))
			result, err := pipeline.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("Stored %d records for %d symbols", result.RecordsStored, len(result.Symbols))
			if len(result.Failed) > 0 {
				output.Warning("Failed: %s", strings.Join(result.Failed, ", "))
			}
			if result.Pruned > 0 {
				output.Dim("Pruned %d expired records", result.Pruned)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipReports, "skip-reports", false, "skip report indexing after refresh")
	return cmd
}

func newMarketQueryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a natural-language question over the market data",
		Example: `  finsight market query "What was AAPL's closing price yesterday?"
  finsight market query "Compare BTC and ETH volume last week"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.openMarketStore()
			if err != nil {
				return err
			}
			defer st.Close()

			engine, err := app.newQueryEngine(st)
			if err != nil {
				return err
			}

			result := engine.ResolveQuery(cmd.Context(), strings.Join(args, " "))
			if output.IsJSON() {
				return output.JSON(result)
			}

			renderQueryResult(output, result)
			return nil
		},
	}
}

func renderQueryResult(output *Output, result marketquery.QueryResult) {
	switch result.Status {
	case models.StatusError:
		output.Error("Query failed: %s", result.Error)
		return
	case models.StatusEmpty:
		if msg, ok := result.Summary["message"].(string); ok {
			output.Warning("%s", msg)
		} else {
			output.Warning("No data found")
		}
		return
	}

	output.Bold("Query: %s intent, %s", result.QueryInfo.Intent, strings.Join(result.QueryInfo.Symbols, ", "))
	if result.QueryInfo.TimeRange != "" {
		output.Dim("Time range: %s", result.QueryInfo.TimeRange)
	}
	output.Println()

	if len(result.Data) > 0 {
		columns := result.Data[0].Columns()
		table := NewTable(output, columns...)
		limit := len(result.Data)
		if limit > 15 {
			limit = 15
		}
		for _, row := range result.Data[:limit] {
			cells := make([]string, len(columns))
			for i, col := range columns {
				cells[i] = TruncateString(row.String(col), 20)
			}
			table.AddRow(cells...)
		}
		table.Render()
		if len(result.Data) > limit {
			output.Dim("... and %d more records", len(result.Data)-limit)
		}
		output.Println()
	}

	for key, value := range result.Summary {
		if key == "message" || key == "time_range" {
			continue
		}
		output.Printf("  %s: %v\n", key, value)
	}
	if msg, ok := result.Summary["message"].(string); ok {
		output.Info("%s", msg)
	}
}

func newMarketPruneCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete market records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.openMarketStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if days <= 0 {
				days = app.Config.Market.RetentionDays
			}

			pruned, err := st.Prune(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("pruning market data: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]any{"pruned": pruned, "keep_days": days})
			}

			output.Success("Pruned %d records older than %d days", pruned, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (defaults to configured retention)")
	return cmd
}

func newMarketSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate statistics over the stored market data",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.openMarketStore()
			if err != nil {
				return err
			}
			defer st.Close()

			summary, err := st.Summary(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarizing market data: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Market Data Summary")
			output.Printf("  Total Records:  %d\n", summary.TotalRecords)
			output.Printf("  Unique Symbols: %d\n", summary.UniqueSymbols)
			output.Printf("  Latest Update:  %s\n", FormatDate(summary.LatestUpdate))
			output.Println()

			closes := make(map[string]string)
			if latest, err := st.LatestRecords(cmd.Context()); err == nil {
				for _, r := range latest {
					closes[r.Symbol] = FormatUSD(r.Close)
				}
			}

			if len(summary.SymbolStats) > 0 {
				table := NewTable(output, "SYMBOL", "RECORDS", "CLOSE", "LATEST")
				for _, stat := range summary.SymbolStats {
					table.AddRow(stat.Symbol, fmt.Sprintf("%d", stat.Records),
						closes[stat.Symbol], FormatDate(stat.LatestData))
				}
				table.Render()
			}
			return nil
		},
	}
}
