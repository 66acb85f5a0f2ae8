package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"finsight/internal/models"
	"finsight/internal/retrieval"
)

// ConversationMemory is the slice of the conversation store the assistant
// needs.
type ConversationMemory interface {
	SaveMessage(ctx context.Context, chatID, role, content string) error
	LoadContext(ctx context.Context, chatID string, n int) (string, error)
}

// CollectionFactory returns the document collection scoped to one chat.
type CollectionFactory func(chatID string) retrieval.Collection

// Assistant answers user questions over a conversation, pulling market data
// and uploaded documents through tool calls when the question needs them.
type Assistant struct {
	llm          LLMClient
	memory       ConversationMemory
	engine       QueryResolver
	documents    CollectionFactory
	contextTurns int
	retrievalK   int
	log          zerolog.Logger
}

// AssistantConfig carries the assistant's tunables.
type AssistantConfig struct {
	ContextTurns int
	RetrievalK   int
}

// NewAssistant wires the assistant from its collaborators.
func NewAssistant(llm LLMClient, mem ConversationMemory, engine QueryResolver, documents CollectionFactory, cfg AssistantConfig, log zerolog.Logger) *Assistant {
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 5
	}
	return &Assistant{
		llm:          llm,
		memory:       mem,
		engine:       engine,
		documents:    documents,
		contextTurns: cfg.ContextTurns,
		retrievalK:   cfg.RetrievalK,
		log:          log.With().Str("component", "assistant").Logger(),
	}
}

// Chat answers one user turn. The conversation context is loaded from
// memory, the model may call the financial_data tool, and both the user
// query and the reply are persisted before returning.
func (a *Assistant) Chat(ctx context.Context, chatID, query string) (string, error) {
	history, err := a.memory.LoadContext(ctx, chatID, a.contextTurns)
	if err != nil {
		a.log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to load chat context")
		history = ""
	}

	userPrompt := fmt.Sprintf(chatPromptTemplate, history, query)

	var documents retrieval.Collection
	if a.documents != nil {
		documents = a.documents(chatID)
	}
	executor := &financialDataExecutor{
		engine:     a.engine,
		documents:  documents,
		retrievalK: a.retrievalK,
		log:        a.log.With().Str("chat_id", chatID).Logger(),
	}

	reply, err := a.llm.CompleteWithTools(ctx, assistantSystemPrompt, userPrompt, assistantTools, executor)
	if err != nil {
		return "", fmt.Errorf("chat completion for %s: %w", chatID, err)
	}

	if err := a.memory.SaveMessage(ctx, chatID, models.RoleUser, query); err != nil {
		a.log.Error().Err(err).Str("chat_id", chatID).Msg("failed to save user message")
	}
	if err := a.memory.SaveMessage(ctx, chatID, models.RoleModel, reply); err != nil {
		a.log.Error().Err(err).Str("chat_id", chatID).Msg("failed to save model reply")
	}

	return reply, nil
}

// Summarize produces a freeform answer grounded in already-retrieved
// context, using the retrieval-aware system prompt. Used for report-style
// answers outside the tool loop.
func (a *Assistant) Summarize(ctx context.Context, query, marketContext, documentContext string) (string, error) {
	prompt := fmt.Sprintf("# Financial Market Data Results:\n%s\n\n# Financial Document Results:\n%s\n\n## User Query\n%s",
		marketContext, documentContext, query)
	return a.llm.CompleteWithSystem(ctx, ragSystemPrompt, prompt)
}
