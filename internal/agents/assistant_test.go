package agents

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"finsight/internal/marketquery"
	"finsight/internal/models"
	"finsight/internal/retrieval"
	"finsight/internal/store"
)

// toolCallingLLM simulates a model that first calls the financial_data tool
// and then answers with the tool result embedded.
type toolCallingLLM struct {
	toolQuery  string
	toolResult string
}

func (m *toolCallingLLM) Complete(context.Context, string) (string, error) {
	return "", nil
}

func (m *toolCallingLLM) CompleteWithSystem(context.Context, string, string) (string, error) {
	return "", nil
}

func (m *toolCallingLLM) CompleteWithTools(ctx context.Context, _, _ string, tools []openai.Tool, executor ToolExecutor) (string, error) {
	if len(tools) == 0 || tools[0].Function.Name != financialDataToolName {
		return "no tools offered", nil
	}
	args, _ := json.Marshal(map[string]string{"query": m.toolQuery})
	result, err := executor.ExecuteTool(ctx, financialDataToolName, args)
	if err != nil {
		return "", err
	}
	m.toolResult = result
	return "Based on retrieved market data: AAPL closed at 200.63.", nil
}

type memoryLog struct {
	saved []models.Message
}

func (m *memoryLog) SaveMessage(_ context.Context, _, role, content string) error {
	m.saved = append(m.saved, models.Message{Role: role, Content: content})
	return nil
}

func (m *memoryLog) LoadContext(context.Context, string, int) (string, error) {
	return "user: earlier question\nmodel: earlier answer", nil
}

type stubResolver struct {
	result marketquery.QueryResult
	query  string
}

func (s *stubResolver) ResolveQuery(_ context.Context, rawText string) marketquery.QueryResult {
	s.query = rawText
	return s.result
}

type stubCollection struct {
	docs []retrieval.Document
}

func (s *stubCollection) Update(context.Context, []retrieval.Document) error { return nil }

func (s *stubCollection) Query(context.Context, string, int) ([]retrieval.Document, error) {
	return s.docs, nil
}

func (s *stubCollection) Name() string { return "financial_documents_collection_test" }

func TestChatToolLoop(t *testing.T) {
	llm := &toolCallingLLM{toolQuery: "price of Apple today"}
	mem := &memoryLog{}
	resolver := &stubResolver{
		result: marketquery.QueryResult{
			Status:      models.StatusSuccess,
			RecordCount: 1,
			Data: []store.Row{
				store.NewRow([]string{"symbol", "close"}, []any{"AAPL", 200.63}),
			},
			Summary: map[string]any{"message": "Current prices for 1 symbols"},
		},
	}
	docs := &stubCollection{docs: []retrieval.Document{{ID: "d1", Content: "Apple reported record revenue."}}}

	assistant := NewAssistant(llm, mem, resolver,
		func(string) retrieval.Collection { return docs },
		AssistantConfig{}, zerolog.Nop())

	reply, err := assistant.Chat(context.Background(), "chat-1", "What is Apple trading at?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(reply, "200.63") {
		t.Errorf("reply = %q", reply)
	}

	if resolver.query != "price of Apple today" {
		t.Errorf("engine query = %q", resolver.query)
	}
	if !strings.Contains(llm.toolResult, "Financial Market Data Results") {
		t.Errorf("tool result missing market section: %q", llm.toolResult)
	}
	if !strings.Contains(llm.toolResult, `"AAPL"`) {
		t.Errorf("tool result missing market data: %q", llm.toolResult)
	}
	if !strings.Contains(llm.toolResult, "Apple reported record revenue.") {
		t.Errorf("tool result missing document context: %q", llm.toolResult)
	}

	if len(mem.saved) != 2 {
		t.Fatalf("saved messages = %d, want user and model turns", len(mem.saved))
	}
	if mem.saved[0].Role != models.RoleUser || mem.saved[1].Role != models.RoleModel {
		t.Errorf("saved roles = %q, %q", mem.saved[0].Role, mem.saved[1].Role)
	}
}

func TestExecutorEmptyResults(t *testing.T) {
	executor := &financialDataExecutor{
		engine: &stubResolver{result: marketquery.QueryResult{
			Status: models.StatusEmpty,
			Data:   []store.Row{},
		}},
		documents:  &stubCollection{},
		retrievalK: 5,
		log:        zerolog.Nop(),
	}

	args, _ := json.Marshal(map[string]string{"query": "weather forecast"})
	result, err := executor.ExecuteTool(context.Background(), financialDataToolName, args)
	if err != nil {
		t.Fatalf("ExecuteTool: %v", err)
	}
	if !strings.Contains(result, "No relevant documents found.") {
		t.Errorf("result = %q", result)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	executor := &financialDataExecutor{log: zerolog.Nop()}

	_, err := executor.ExecuteTool(context.Background(), "delete_everything", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("want error for unknown tool")
	}
}
