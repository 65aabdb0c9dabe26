// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// NatsTranscriptRepository implements TranscriptRepository using NATS KV store.
// Transcripts are keyed by meeting UID, so there is at most one per meeting.
type NatsTranscriptRepository struct {
	*NatsBaseRepository[models.Transcript]
}

// NewNatsTranscriptRepository creates a new transcript repository
func NewNatsTranscriptRepository(kvStore INatsKeyValue) *NatsTranscriptRepository {
	return &NatsTranscriptRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Transcript](kvStore, "transcript"),
	}
}

// GetTranscript retrieves the transcript of a meeting
func (r *NatsTranscriptRepository) GetTranscript(ctx context.Context, meetingUID string) (*models.Transcript, error) {
	transcript, err := r.Get(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError(fmt.Sprintf("transcript for meeting %s not found", meetingUID), domain.ErrTranscriptNotFound)
		}
		return nil, err
	}
	return transcript, nil
}

// UpsertTranscript creates or replaces the transcript of a meeting
func (r *NatsTranscriptRepository) UpsertTranscript(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil || transcript.MeetingUID == "" {
		return domain.NewValidationError("transcript meeting UID is required")
	}
	_, err := r.Put(ctx, transcript.MeetingUID, transcript)
	return err
}
