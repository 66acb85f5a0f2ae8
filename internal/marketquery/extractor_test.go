package marketquery

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

type scriptedCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *scriptedCompleter) CompleteWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	s.prompt = userPrompt
	return s.response, s.err
}

func TestExtractParsesStructuredOutput(t *testing.T) {
	completer := &scriptedCompleter{
		response: `{"symbols": ["AAPL", "MSFT"], "intent": "comparison", "time_range": "last week", "metrics": ["rsi"], "aggregation": null}`,
	}
	extractor := NewExtractor(completer, zerolog.Nop())

	got, err := extractor.Extract(context.Background(), "Compare Apple and Microsoft's RSI over the last week")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := models.QueryExtraction{
		Symbols:   []string{"AAPL", "MSFT"},
		Intent:    models.IntentComparison,
		TimeRange: "last week",
		Metrics:   []string{"rsi"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extraction = %+v, want %+v", got, want)
	}
}

func TestExtractToleratesCodeFence(t *testing.T) {
	completer := &scriptedCompleter{
		response: "```json\n{\"symbols\": [\"BTC\"], \"intent\": \"volatility\", \"time_range\": \"this month\"}\n```",
	}
	extractor := NewExtractor(completer, zerolog.Nop())

	got, err := extractor.Extract(context.Background(), "How volatile has Bitcoin been this month?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(got.Symbols, []string{"BTC"}) || got.Intent != models.IntentVolatility {
		t.Errorf("extraction = %+v", got)
	}
}

func TestExtractMalformedOutput(t *testing.T) {
	completer := &scriptedCompleter{response: "I could not determine the symbols, sorry."}
	extractor := NewExtractor(completer, zerolog.Nop())

	got, err := extractor.Extract(context.Background(), "apple price")
	if err == nil {
		t.Fatal("want error for malformed output")
	}
	if !errors.Is(err, apperrors.ErrMalformedOutput) {
		t.Errorf("err = %v, want ErrMalformedOutput", err)
	}
	if got.HasSymbols() {
		t.Errorf("malformed output yielded symbols: %+v", got)
	}
}

func TestExtractCompletionFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("rate limited")}
	extractor := NewExtractor(completer, zerolog.Nop())

	got, err := extractor.Extract(context.Background(), "apple price")
	if err == nil {
		t.Fatal("want error for completion failure")
	}
	var extractionErr *apperrors.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Errorf("err = %T, want *ExtractionError", err)
	}
	if got.HasSymbols() {
		t.Errorf("failed extraction yielded symbols: %+v", got)
	}
}

func TestExtractNormalizesUnknownIntent(t *testing.T) {
	completer := &scriptedCompleter{
		response: `{"symbols": ["JPM"], "intent": "forecast"}`,
	}
	extractor := NewExtractor(completer, zerolog.Nop())

	got, err := extractor.Extract(context.Background(), "JPMorgan forecast")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Intent != models.IntentOther {
		t.Errorf("intent = %q, want other", got.Intent)
	}
}

func TestExtractPromptCarriesQuery(t *testing.T) {
	completer := &scriptedCompleter{response: `{"symbols": []}`}
	extractor := NewExtractor(completer, zerolog.Nop())

	_, _ = extractor.Extract(context.Background(), "What is the current price of Apple?")

	if !strings.Contains(completer.prompt, "What is the current price of Apple?") {
		t.Error("prompt does not carry the user query")
	}
	if !strings.Contains(completer.prompt, "AAPL, MSFT, JPM, BTC, ETH") {
		t.Error("prompt does not list the available symbols")
	}
}
