// Package cli provides the command-line interface for the financial
// assistant.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"finsight/internal/agents"
	"finsight/internal/config"
	"finsight/internal/ingest"
	"finsight/internal/logging"
	"finsight/internal/marketquery"
	"finsight/internal/memory"
	"finsight/internal/retrieval"
	"finsight/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-08-24"
)

// App holds the application dependencies. Stores and clients are opened
// lazily because most commands need only a subset.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{Config: cfg, Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "Finsight - AI-powered financial assistant",
		Long: `Finsight is a financial assistant over daily market data.

It ingests stock and crypto prices, enriches them with technical
indicators, and answers natural-language questions by routing them
through an LLM-backed query engine and document retrieval.

Use 'finsight help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/finsight)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newMarketCmd(app))
	rootCmd.AddCommand(newChatCmd(app))
	rootCmd.AddCommand(newChatsCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Finsight v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Server")
	output.Printf("  Host:            %s\n", cfg.Server.Host)
	output.Printf("  Port:            %d\n", cfg.Server.Port)
	output.Println()

	output.Bold("Market Data")
	output.Printf("  Stocks:          %v\n", cfg.Market.Stocks)
	output.Printf("  Cryptos:         %v\n", cfg.Market.Cryptos)
	output.Printf("  Quote Market:    %s\n", cfg.Market.CryptoMarket)
	output.Printf("  Refresh Cron:    %s\n", cfg.Market.RefreshCron)
	output.Printf("  Retention Days:  %d\n", cfg.Market.RetentionDays)
	output.Println()

	output.Bold("Assistant")
	output.Printf("  Model:           %s\n", cfg.Assistant.Model)
	output.Printf("  Embedding Model: %s\n", cfg.Assistant.EmbeddingModel)
	output.Printf("  Context Turns:   %d\n", cfg.Assistant.ContextTurns)
	output.Printf("  Retrieval K:     %d\n", cfg.Assistant.RetrievalK)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  Console:         %v\n", cfg.Logging.Console)
	output.Printf("  File:            %v\n", cfg.Logging.File)
}

func (a *App) dataPath(name string) string {
	dir := config.DataDir()
	os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, name)
}

func (a *App) openMarketStore() (*store.SQLiteMarketStore, error) {
	st, err := store.NewSQLiteMarketStore(a.dataPath("market.db"))
	if err != nil {
		return nil, fmt.Errorf("opening market store: %w", err)
	}
	return st, nil
}

func (a *App) openConversations() (*memory.ConversationStore, error) {
	st, err := memory.NewConversationStore(a.dataPath("conversations.db"))
	if err != nil {
		return nil, fmt.Errorf("opening conversation store: %w", err)
	}
	return st, nil
}

func (a *App) newLLMClient() (*agents.OpenAIClient, error) {
	key := a.Config.Credentials.OpenAI.APIKey
	if key == "" {
		return nil, fmt.Errorf("OpenAI API key not configured; set OPENAI_API_KEY or credentials.toml")
	}
	return agents.NewOpenAIClient(key, a.Config.Assistant.Model), nil
}

func (a *App) newQueryEngine(st store.MarketStore) (*marketquery.Engine, error) {
	llm, err := a.newLLMClient()
	if err != nil {
		return nil, err
	}
	extractor := marketquery.NewExtractor(llm, a.Logger)
	return marketquery.NewEngine(st, extractor, a.Logger), nil
}

func (a *App) openVectorIndex() (*retrieval.VectorIndex, error) {
	key := a.Config.Credentials.OpenAI.APIKey
	if key == "" {
		return nil, fmt.Errorf("OpenAI API key not configured; set OPENAI_API_KEY or credentials.toml")
	}
	embedder := retrieval.NewOpenAIEmbedder(key, a.Config.Assistant.EmbeddingModel)
	index, err := retrieval.NewVectorIndex(a.dataPath("vectors.db"), embedder, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return index, nil
}

func (a *App) newPipeline(st store.MarketStore, reports retrieval.Collection) (*ingest.Pipeline, error) {
	key := a.Config.Credentials.Vantage.APIKey
	if key == "" {
		return nil, fmt.Errorf("Alpha Vantage API key not configured; set VANTAGE_API_KEY or credentials.toml")
	}
	fetcher := ingest.NewVantageClient(key, a.Logger)
	return ingest.NewPipeline(fetcher, st, reports, a.Config.Market, a.Logger), nil
}
