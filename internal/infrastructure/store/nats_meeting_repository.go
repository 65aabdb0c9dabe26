// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// NatsMeetingRepository is the NATS KV store repository for meetings.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting"),
	}
}

// CreateMeeting stores a new meeting; an existing UID is a conflict.
func (r *NatsMeetingRepository) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if meeting == nil || meeting.UID == "" {
		return domain.NewValidationError("meeting UID is required")
	}
	return r.Create(ctx, meeting.UID, meeting)
}

// MeetingExists checks if a meeting exists
func (r *NatsMeetingRepository) MeetingExists(ctx context.Context, meetingUID string) (bool, error) {
	return r.Exists(ctx, meetingUID)
}

// GetMeeting retrieves a meeting by UID
func (r *NatsMeetingRepository) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	meeting, _, err := r.GetMeetingWithRevision(ctx, meetingUID)
	return meeting, err
}

// GetMeetingWithRevision retrieves a meeting with its revision
func (r *NatsMeetingRepository) GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	meeting, revision, err := r.GetWithRevision(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.NewNotFoundError(fmt.Sprintf("meeting %s not found", meetingUID), domain.ErrMeetingNotFound)
		}
		return nil, 0, err
	}
	return meeting, revision, nil
}

// UpdateMeeting updates a meeting with optimistic concurrency control
func (r *NatsMeetingRepository) UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	err := r.Update(ctx, meeting.UID, meeting, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.NewNotFoundError(fmt.Sprintf("meeting %s not found", meeting.UID), domain.ErrMeetingNotFound)
	}
	return err
}

// ListMeetings retrieves every meeting
func (r *NatsMeetingRepository) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	return r.ListEntities(ctx)
}
