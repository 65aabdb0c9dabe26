// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package speech provides the speech-to-text collaborator backed by a
// Whisper-compatible HTTP API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

const (
	// BaseURL is the base URL for the OpenAI API, which serves Whisper
	BaseURL = "https://api.openai.com"
	// TranscriptionsPath is the transcription endpoint path
	TranscriptionsPath = "/v1/audio/transcriptions"
	// DefaultModel is the default Whisper model
	DefaultModel = "whisper-1"
	// DefaultClientTimeout is the default HTTP client timeout for transcription requests
	DefaultClientTimeout = 10 * time.Minute
	// maxErrorBody bounds how much of an error response is kept for logs
	maxErrorBody = 4096
)

// Config holds the configuration for the Whisper client
type Config struct {
	APIKey string
	// Optional: override base URL for testing or self-hosted servers
	BaseURL string
	// Optional: override model
	Model string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// WhisperClient transcribes recordings. It makes exactly one request per call
// and classifies failures; retrying is left to the caller.
type WhisperClient struct {
	httpClient *http.Client
	config     Config
}

// Ensure that WhisperClient implements SpeechToText
var _ domain.SpeechToText = (*WhisperClient)(nil)

// NewWhisperClient creates a new Whisper client
func NewWhisperClient(config Config) *WhisperClient {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}

	return &WhisperClient{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
	}
}

type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the recording and returns the verbose transcription.
func (c *WhisperClient) Transcribe(ctx context.Context, recording *domain.Recording) (*domain.TranscriptionResult, error) {
	if recording == nil || recording.Body == nil {
		return nil, domain.NewPermanentError("recording has no content", domain.ErrRecordingMissing)
	}

	body, contentType, err := c.buildMultipart(recording)
	if err != nil {
		return nil, domain.NewPermanentError("failed to build transcription request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+TranscriptionsPath, body)
	if err != nil {
		return nil, domain.NewPermanentError("failed to create transcription request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	slog.DebugContext(ctx, "making transcription request",
		"recording", recording.Name,
		"size", recording.Size,
		"model", c.config.Model,
	)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		slog.WarnContext(ctx, "transcription request failed",
			"duration", duration.String(),
			logging.ErrKey, err)
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.ErrorContext(ctx, "transcription API error response",
			"status", resp.StatusCode,
			"duration", duration.String(),
			"body", string(errBody),
			logging.ErrKey, fmt.Errorf("status: %d", resp.StatusCode))
		return nil, classifyStatus(resp.StatusCode, string(errBody))
	}

	var result verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.NewTransientError("failed to decode transcription response", err)
	}

	slog.InfoContext(ctx, "transcription request completed",
		"status", resp.StatusCode,
		"duration", duration.String(),
		"language", result.Language,
		"segments", len(result.Segments),
	)

	out := &domain.TranscriptionResult{
		Text:     strings.TrimSpace(result.Text),
		Language: result.Language,
		Duration: result.Duration,
		Segments: make([]models.TranscriptSegment, 0, len(result.Segments)),
	}
	for _, s := range result.Segments {
		out.Segments = append(out.Segments, models.TranscriptSegment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return out, nil
}

// buildMultipart buffers the multipart form. Recordings are read once so a
// failed request never leaves a half-consumed body behind.
func (c *WhisperClient) buildMultipart(recording *domain.Recording) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	name := recording.Name
	if name == "" {
		name = "recording"
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, recording.Body); err != nil {
		return nil, "", fmt.Errorf("failed to read recording: %w", err)
	}

	fields := map[string]string{
		"model":           c.config.Model,
		"response_format": "verbose_json",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

// classifyTransportError maps network failures and timeouts to transient errors.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return domain.NewTransientError("transcription request cancelled", err)
	}
	return domain.NewTransientError("transcription request failed", err)
}

// classifyStatus maps an HTTP error status to the pipeline error taxonomy.
// Rate limiting and server errors are transient; other client errors are permanent.
func classifyStatus(statusCode int, body string) error {
	err := fmt.Errorf("status %d: %s", statusCode, body)
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout || statusCode >= http.StatusInternalServerError {
		return domain.NewTransientError("transcription service unavailable", err)
	}
	return domain.NewPermanentError("transcription rejected", err)
}
