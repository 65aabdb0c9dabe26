// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

func TestTranscriptionStage_Run(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusTranscribing)
	f.expectTranscription("Hello everyone.")

	require.NoError(t, f.transcription.Run(ContextWithAttempt(ctx, 2), meeting))

	transcript, err := f.transcripts.GetTranscript(ctx, meeting.UID)
	require.NoError(t, err)
	assert.Equal(t, "Hello everyone.", transcript.FullText)
	assert.Equal(t, "en", transcript.Language)
	assert.Len(t, transcript.Segments, 1)

	entries := f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, 2, entries[0].Attempt)
	f.recordings.AssertCalled(t, "OpenRecording", mock.Anything, meeting.RecordingRef)
}

func TestTranscriptionStage_RunReusesExistingTranscript(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusTranscribing)
	require.NoError(t, f.transcripts.UpsertTranscript(ctx, &models.Transcript{MeetingUID: meeting.UID, FullText: "Already done."}))

	require.NoError(t, f.transcription.Run(ctx, meeting))

	f.stt.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
	assert.Empty(t, f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription))
}

func TestTranscriptionStage_RunErrors(t *testing.T) {
	tests := []struct {
		name         string
		recordingRef string
		setupMocks   func(f *pipelineFixture)
		expectedType domain.ErrorType
	}{
		{
			name:         "meeting without recording",
			recordingRef: "",
			expectedType: domain.ErrorTypePermanent,
		},
		{
			name:         "recording missing from the store",
			recordingRef: "recordings/gone.mp3",
			setupMocks: func(f *pipelineFixture) {
				f.recordings.On("OpenRecording", mock.Anything, "recordings/gone.mp3").
					Return(nil, domain.NewNotFoundError("object not found"))
			},
			expectedType: domain.ErrorTypePermanent,
		},
		{
			name:         "speech service rate limited",
			recordingRef: "recordings/ok.mp3",
			setupMocks: func(f *pipelineFixture) {
				f.recordings.On("OpenRecording", mock.Anything, mock.Anything).Return(&domain.Recording{Body: noopBody{}}, nil)
				f.stt.On("Transcribe", mock.Anything, mock.Anything).Return(nil, domain.NewTransientError("429"))
			},
			expectedType: domain.ErrorTypeTransient,
		},
		{
			name:         "unsupported audio format",
			recordingRef: "recordings/ok.txt",
			setupMocks: func(f *pipelineFixture) {
				f.recordings.On("OpenRecording", mock.Anything, mock.Anything).Return(&domain.Recording{Body: noopBody{}}, nil)
				f.stt.On("Transcribe", mock.Anything, mock.Anything).Return(nil, domain.NewPermanentError("400 invalid file format"))
			},
			expectedType: domain.ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusTranscribing)
			meeting.RecordingRef = tt.recordingRef
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			err := f.transcription.Run(context.Background(), meeting)

			require.Error(t, err)
			assert.Equal(t, tt.expectedType, domain.GetErrorType(err))
			entries := f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.expectedType.String(), entries[0].ErrorType)

			_, err = f.transcripts.GetTranscript(context.Background(), meeting.UID)
			assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
		})
	}
}
