package marketquery

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// Completer is the text-completion collaborator used for structured
// extraction. *agents.OpenAIClient satisfies it.
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor converts free-text queries into structured extractions via an
// LLM with a fixed few-shot prompt.
type Extractor struct {
	llm Completer
	now func() time.Time
	log zerolog.Logger
}

// NewExtractor creates an extractor backed by the given completion client.
func NewExtractor(llm Completer, log zerolog.Logger) *Extractor {
	return &Extractor{
		llm: llm,
		now: time.Now,
		log: log.With().Str("component", "extractor").Logger(),
	}
}

// Extract parses a free-text query into a structured extraction. On any
// failure (transport, malformed output) it returns a zero extraction and the
// error; callers treat a zero extraction as "nothing found" and short-circuit
// without touching the store.
func (e *Extractor) Extract(ctx context.Context, query string) (models.QueryExtraction, error) {
	prompt := buildExtractionPrompt(query, e.now())

	raw, err := e.llm.CompleteWithSystem(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		e.log.Error().Err(err).Str("query", query).Msg("extraction completion failed")
		return models.QueryExtraction{}, apperrors.NewExtractionError(query, err)
	}

	extraction, err := parseExtraction(raw)
	if err != nil {
		e.log.Warn().Err(err).Str("query", query).Msg("malformed extraction output")
		return models.QueryExtraction{}, apperrors.NewExtractionError(query, err)
	}

	if !models.ValidIntent(string(extraction.Intent)) {
		extraction.Intent = models.IntentOther
	}

	e.log.Debug().
		Strs("symbols", extraction.Symbols).
		Str("intent", string(extraction.Intent)).
		Str("time_range", extraction.TimeRange).
		Msg("query extracted")

	return extraction, nil
}

// parseExtraction decodes the model output, tolerating markdown code fences
// around the JSON object.
func parseExtraction(raw string) (models.QueryExtraction, error) {
	cleaned := stripCodeFence(raw)

	var extraction models.QueryExtraction
	if err := json.Unmarshal([]byte(cleaned), &extraction); err != nil {
		return models.QueryExtraction{}, apperrors.ErrMalformedOutput
	}
	return extraction, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
