// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package llm provides the language model collaborator used to extract
// action items and summaries from transcripts.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-2.5-flash"

const extractionPrompt = `Analyze the following meeting transcript and extract all action items.
For each action item, identify:
1. The task description
2. The person assigned to the task (if mentioned)
3. The due date or timeline (if mentioned), as an ISO 8601 date. The meeting took place on %s; resolve relative dates against it.
4. The priority level (if mentioned): low, medium or high

Respond with a JSON array of action items. Respond with an empty array if there are none.

Transcript:
%s`

const summaryPrompt = `Provide a concise summary (maximum %d words) of the following meeting transcript,
highlighting the key points discussed and decisions made.

Transcript:
%s`

// ContentGenerator is the subset of [genai.Models] the extractor calls.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor extracts action items and summaries with Gemini. Each call
// makes one request; retries belong to the pipeline.
type GeminiExtractor struct {
	generator ContentGenerator
	model     string
}

var _ domain.LLMExtractor = (*GeminiExtractor)(nil)

// NewGeminiClient creates a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// NewGeminiExtractor creates an extractor over a content generator, usually
// the Models service of a [genai.Client].
func NewGeminiExtractor(generator ContentGenerator, model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiExtractor{
		generator: generator,
		model:     model,
	}
}

func actionItemsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description": {Type: genai.TypeString, Description: "What needs to be done"},
				"assignee":    {Type: genai.TypeString, Description: "Name or email of the person responsible"},
				"dueDate":     {Type: genai.TypeString, Description: "Due date in ISO 8601 format"},
				"priority":    {Type: genai.TypeString, Enum: []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}},
			},
			Required: []string{"description"},
		},
	}
}

// ExtractActionItems asks the model for the transcript's action items. A
// response that is not a JSON array is transient; the model is asked again on retry.
func (g *GeminiExtractor) ExtractActionItems(ctx context.Context, transcript string, meetingDate time.Time) ([]models.RawActionItem, error) {
	prompt := fmt.Sprintf(extractionPrompt, meetingDate.UTC().Format(time.DateOnly), transcript)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   actionItemsSchema(),
	}

	text, err := g.generate(ctx, "extract_action_items", prompt, config)
	if err != nil {
		return nil, err
	}

	items, err := parseActionItems(text)
	if err != nil {
		slog.WarnContext(ctx, "model returned malformed action items", logging.ErrKey, err, "model", g.model)
		return nil, domain.NewTransientError("malformed action item response", err)
	}

	slog.DebugContext(ctx, "extracted raw action items", "count", len(items), "model", g.model)
	return items, nil
}

// Summarize asks the model for a short summary of the transcript.
func (g *GeminiExtractor) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := fmt.Sprintf(summaryPrompt, constants.SummaryMaxWords, transcript)

	text, err := g.generate(ctx, "summarize", prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiExtractor) generate(ctx context.Context, operation, prompt string, config *genai.GenerateContentConfig) (string, error) {
	startTime := time.Now()
	result, err := g.generator.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	duration := time.Since(startTime)
	if err != nil {
		slog.WarnContext(ctx, "Gemini request failed",
			"operation", operation,
			"model", g.model,
			"duration", duration.String(),
			logging.ErrKey, err)
		return "", classifyError(err)
	}

	var text strings.Builder
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return "", domain.NewTransientError("empty response from Gemini")
	}

	slog.DebugContext(ctx, "Gemini request completed",
		"operation", operation,
		"model", g.model,
		"duration", duration.String(),
	)
	return text.String(), nil
}

// parseActionItems decodes a JSON array, tolerating a markdown code fence.
func parseActionItems(text string) ([]models.RawActionItem, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "[") {
		return nil, errors.New("response is not a JSON array")
	}

	var items []models.RawActionItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.RawActionItem{}
	}
	return items, nil
}

// classifyError maps Gemini API failures onto the pipeline error taxonomy.
func classifyError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	switch {
	case code == 0:
		// Network failure or timeout
		return domain.NewTransientError("Gemini request failed", err)
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
		return domain.NewTransientError("Gemini unavailable", err)
	default:
		return domain.NewPermanentError("Gemini rejected request", err)
	}
}
