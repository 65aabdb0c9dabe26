// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

// TranscriptionStage turns a meeting's stored recording into its transcript.
type TranscriptionStage struct {
	recordingStore       domain.RecordingStore
	speechToText         domain.SpeechToText
	transcriptRepository domain.TranscriptRepository
	integrationLog       *IntegrationLogService
	config               ServiceConfig
	now                  func() time.Time
}

// NewTranscriptionStage creates a new TranscriptionStage
func NewTranscriptionStage(
	recordingStore domain.RecordingStore,
	speechToText domain.SpeechToText,
	transcriptRepository domain.TranscriptRepository,
	integrationLog *IntegrationLogService,
	serviceConfig ServiceConfig,
) *TranscriptionStage {
	return &TranscriptionStage{
		recordingStore:       recordingStore,
		speechToText:         speechToText,
		transcriptRepository: transcriptRepository,
		integrationLog:       integrationLog,
		config:               serviceConfig,
		now:                  time.Now,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *TranscriptionStage) ServiceReady() bool {
	return s.recordingStore != nil &&
		s.speechToText != nil &&
		s.transcriptRepository != nil &&
		s.integrationLog != nil
}

// Status returns the meeting status the stage runs in.
func (s *TranscriptionStage) Status() models.MeetingStatus {
	return models.MeetingStatusTranscribing
}

// Run transcribes the recording and upserts the transcript keyed by meeting UID.
// A usable transcript left by an earlier interrupted run is kept as is.
func (s *TranscriptionStage) Run(ctx context.Context, meeting *models.Meeting) error {
	existing, err := s.transcriptRepository.GetTranscript(ctx, meeting.UID)
	switch {
	case err == nil && existing.IsUsable():
		slog.InfoContext(ctx, "transcript already exists, skipping transcription")
		return nil
	case err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound:
		slog.ErrorContext(ctx, "failed to check for existing transcript", logging.ErrKey, err)
		return err
	}

	if meeting.RecordingRef == "" {
		err := domain.NewPermanentError("meeting cannot be transcribed", domain.ErrRecordingMissing)
		s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription, err, nil)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.callTimeout())
	defer cancel()

	recording, err := s.recordingStore.OpenRecording(callCtx, meeting.RecordingRef)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			err = domain.NewPermanentError("recording not found", err)
		}
		s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription, err,
			map[string]any{"recording_ref": meeting.RecordingRef})
		slog.WarnContext(ctx, "failed to open recording", logging.ErrKey, err, "recording_ref", meeting.RecordingRef)
		return err
	}
	defer func() { _ = recording.Body.Close() }()

	startTime := time.Now()
	result, err := s.speechToText.Transcribe(callCtx, recording)
	duration := time.Since(startTime)
	if err != nil {
		s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription, err,
			map[string]any{"recording_ref": meeting.RecordingRef, "duration": duration.String()})
		slog.WarnContext(ctx, "transcription failed", logging.ErrKey, err, "duration", duration.String())
		return err
	}

	s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription, nil,
		map[string]any{
			"recording_ref": meeting.RecordingRef,
			"language":      result.Language,
			"segments":      len(result.Segments),
			"duration":      duration.String(),
		})

	now := s.now().UTC()
	transcript := &models.Transcript{
		MeetingUID: meeting.UID,
		FullText:   result.Text,
		Segments:   result.Segments,
		Language:   result.Language,
		Duration:   result.Duration,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		transcript.CreatedAt = existing.CreatedAt
	}
	if transcript.Segments == nil {
		transcript.Segments = []models.TranscriptSegment{}
	}

	if err := s.transcriptRepository.UpsertTranscript(ctx, transcript); err != nil {
		slog.ErrorContext(ctx, "failed to store transcript", logging.ErrKey, err)
		return err
	}

	slog.InfoContext(ctx, "stored transcript",
		"segments", len(transcript.Segments),
		"language", transcript.Language,
		"transcription_duration", duration.String(),
	)
	return nil
}
