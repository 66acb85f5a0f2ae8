// Package server exposes the assistant, the market query engine, and the
// ingestion pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finsight/internal/config"
	"finsight/internal/ingest"
	"finsight/internal/marketquery"
	"finsight/internal/models"
	"finsight/internal/retrieval"
)

// ChatService answers a user message within a chat.
type ChatService interface {
	Chat(ctx context.Context, chatID, query string) (string, error)
}

// MarketService resolves a natural-language market query directly.
type MarketService interface {
	ResolveQuery(ctx context.Context, rawText string) marketquery.QueryResult
}

// RefreshService runs one market ingestion cycle.
type RefreshService interface {
	Refresh(ctx context.Context) (*ingest.RefreshResult, error)
}

// ConversationService is the chat bookkeeping the HTTP layer needs.
type ConversationService interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	ChatInfo(ctx context.Context, chatID string) (*models.ChatInfo, error)
	DeleteChat(ctx context.Context, chatID string) error
	SaveDocument(ctx context.Context, chatID string, doc models.DocumentMeta) error
	Documents(ctx context.Context, chatID string) ([]models.DocumentMeta, error)
}

// MarketSummaryService reports aggregate statistics over stored market data.
type MarketSummaryService interface {
	Summary(ctx context.Context) (*models.MarketSummary, error)
}

// Deps bundles everything the server serves.
type Deps struct {
	Assistant     ChatService
	Market        MarketService
	Refresher     RefreshService
	Conversations ConversationService
	MarketSummary MarketSummaryService

	// Documents returns the per-chat document collection used when a file
	// is uploaded into a chat.
	Documents func(chatID string) retrieval.Collection
	// PurgeDocuments removes a chat's indexed documents when the chat is
	// deleted. Optional.
	PurgeDocuments func(ctx context.Context, chatID string) error

	Chunker retrieval.Chunker
}

// Server is the HTTP front end.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	deps   Deps
	log    zerolog.Logger
}

// New builds the server and registers its routes.
func New(cfg config.ServerConfig, deps Deps, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine: engine,
		deps:   deps,
		log:    log.With().Str("component", "server").Logger(),
	}

	engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/chats", s.handleListChats)
		api.GET("/chat/:id/history", s.handleChatHistory)
		api.GET("/chat/:id/documents", s.handleChatDocuments)
		api.DELETE("/chat/:id", s.handleDeleteChat)

		api.POST("/market/refresh", s.handleMarketRefresh)
		api.POST("/market/query", s.handleMarketQuery)
		api.GET("/market/summary", s.handleMarketSummary)

		api.POST("/documents/upload", s.handleDocumentUpload)
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// Handler exposes the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
