package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"finsight/internal/agents"
	"finsight/internal/ingest"
	"finsight/internal/retrieval"
	"finsight/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server exposing the assistant, the market query
engine, and the ingestion pipeline. Scheduled market refreshes run in
the background unless --no-scheduler is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app, noScheduler)
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "disable the scheduled market refresh")
	return cmd
}

func runServe(app *App, noScheduler bool) error {
	llm, err := app.newLLMClient()
	if err != nil {
		return err
	}

	marketStore, err := app.openMarketStore()
	if err != nil {
		return err
	}
	defer marketStore.Close()

	conversations, err := app.openConversations()
	if err != nil {
		return err
	}
	defer conversations.Close()

	index, err := app.openVectorIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	engine, err := app.newQueryEngine(marketStore)
	if err != nil {
		return err
	}

	documents := func(chatID string) retrieval.Collection {
		return retrieval.NewDocumentCollection(index, chatID)
	}

	assistant := agents.NewAssistant(llm, conversations, engine, documents, agents.AssistantConfig{
		ContextTurns: app.Config.Assistant.ContextTurns,
		RetrievalK:   app.Config.Assistant.RetrievalK,
	}, app.Logger)

	pipeline, err := app.newPipeline(marketStore, retrieval.NewReportCollection(index))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !noScheduler && app.Config.Market.RefreshCron != "" {
		scheduler := ingest.NewScheduler(pipeline, app.Logger)
		if err := scheduler.Start(ctx, app.Config.Market.RefreshCron); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	srv := server.New(app.Config.Server, server.Deps{
		Assistant:     assistant,
		Market:        engine,
		Refresher:     pipeline,
		Conversations: conversations,
		MarketSummary: marketStore,
		Documents:     documents,
		PurgeDocuments: func(ctx context.Context, chatID string) error {
			collection := retrieval.NewDocumentCollection(index, chatID)
			return index.DropCollection(ctx, collection.Name())
		},
		Chunker: retrieval.NewChunker(),
	}, app.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
