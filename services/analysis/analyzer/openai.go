package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// openaiConcurrency bounds parallel per-paragraph completions within
// one batch.
const openaiConcurrency = 4

// OpenAIRunner analyzes paragraphs with one JSON-mode chat completion
// per paragraph. Any single completion failure fails the whole batch;
// errgroup cancellation stops the remaining calls.
type OpenAIRunner struct {
	client *openai.Client
	model  string

	now func() time.Time
}

// NewOpenAIRunner creates a runner for the given API key and model.
func NewOpenAIRunner(apiKey, model string) (*OpenAIRunner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("analysis model not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI analyzer", "model", model)
	return &OpenAIRunner{
		client: openai.NewClient(apiKey),
		model:  model,
		now:    time.Now,
	}, nil
}

var _ Runner = (*OpenAIRunner)(nil)

// paragraphAnalysis is the JSON shape the model is instructed to emit.
type paragraphAnalysis struct {
	Emotion     []string `json:"emotion"`
	Theme       []string `json:"theme"`
	DeepMeaning string   `json:"deepMeaning"`
	Confidence  float64  `json:"confidence"`
}

// Analyze fans the batch out across paragraphs and joins the results.
// Returns an error, never partial results, if any paragraph fails.
func (r *OpenAIRunner) Analyze(ctx context.Context, req Request) (*BatchResult, error) {
	slog.Debug("Dispatching analysis batch via OpenAI",
		"request_id", req.RequestID,
		"document_id", req.DocumentID,
		"paragraphs", len(req.Paragraphs),
	)

	system := systemPrompt(req.Persona())
	analyzedAt := r.now().UTC()

	results := make([]Result, len(req.Paragraphs))
	var mu sync.Mutex
	inputTokens := 0
	outputTokens := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(openaiConcurrency)

	for i, p := range req.Paragraphs {
		g.Go(func() error {
			resp, err := r.client.CreateChatCompletion(gctx, openai.ChatCompletionRequest{
				Model: r.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: p.Text},
				},
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return fmt.Errorf("analyze paragraph %s: %w", p.ParagraphID, err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("analyze paragraph %s: no choices returned", p.ParagraphID)
			}

			var analysis paragraphAnalysis
			if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &analysis); err != nil {
				return fmt.Errorf("analyze paragraph %s: malformed response: %w", p.ParagraphID, err)
			}

			mu.Lock()
			results[i] = Result{
				ParagraphID:   p.ParagraphID,
				Emotion:       analysis.Emotion,
				Theme:         analysis.Theme,
				DeepMeaning:   analysis.DeepMeaning,
				Confidence:    clamp01(analysis.Confidence),
				Model:         r.model,
				AnalyzedAt:    analyzedAt,
				PromptVersion: req.PromptVersion,
			}
			inputTokens += resp.Usage.PromptTokens
			outputTokens += resp.Usage.CompletionTokens
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("analysis batch failed", "request_id", req.RequestID, "error", err)
		return nil, err
	}

	return &BatchResult{
		RequestID:     req.RequestID,
		Results:       results,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: EstimateCost(inputTokens, outputTokens),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func systemPrompt(persona datatypes.PersonaMode) string {
	var voice string
	switch persona {
	case datatypes.PersonaFriendly:
		voice = "Write warmly, as a supportive friend would."
	case datatypes.PersonaEditor:
		voice = "Write precisely, as a professional editor would."
	default:
		voice = "Write plainly, as a thoughtful general reader would."
	}

	return strings.Join([]string{
		"You analyze one paragraph of personal writing.",
		"Respond with a JSON object with keys: emotion (array of strings),",
		"theme (array of strings), deepMeaning (string), confidence (number 0..1).",
		voice,
	}, " ")
}
