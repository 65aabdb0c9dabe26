// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// MeetingRepository defines the interface for meeting storage operations.
// This interface can be implemented by different storage backends (NATS, PostgreSQL, etc.)
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	MeetingExists(ctx context.Context, meetingUID string) (bool, error)
	GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	// UpdateMeeting writes the meeting only if the stored revision still matches.
	UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error
}

// TranscriptRepository stores at most one transcript per meeting.
type TranscriptRepository interface {
	GetTranscript(ctx context.Context, meetingUID string) (*models.Transcript, error)
	// UpsertTranscript creates or replaces the transcript keyed by its meeting UID.
	UpsertTranscript(ctx context.Context, transcript *models.Transcript) error
}

// ActionItemRepository stores the action item set of a meeting as one document.
type ActionItemRepository interface {
	GetActionItems(ctx context.Context, meetingUID string) (*models.ActionItemList, uint64, error)
	// ReplaceActionItems atomically replaces the whole set for the meeting.
	ReplaceActionItems(ctx context.Context, list *models.ActionItemList) error
	// UpdateActionItems writes the set only if the stored revision still matches.
	UpdateActionItems(ctx context.Context, list *models.ActionItemList, revision uint64) error
}

// IntegrationLogRepository is an append-only store of integration call attempts.
type IntegrationLogRepository interface {
	AppendEntry(ctx context.Context, entry *models.IntegrationLogEntry) error
	ListEntries(ctx context.Context, entityType models.EntityType, entityUID string) ([]*models.IntegrationLogEntry, error)
	ListEntriesForIntegration(ctx context.Context, entityType models.EntityType, entityUID string, integration models.IntegrationType) ([]*models.IntegrationLogEntry, error)
}

// UserDirectory lists the users that action items may be assigned to.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// CredentialStore resolves per-user integration credentials. A missing
// credential is reported as an error of type [ErrorTypeAuth].
type CredentialStore interface {
	ChatCredential(ctx context.Context, userUID string) (*models.ChatCredential, error)
	CalendarCredential(ctx context.Context, userUID string) (*models.CalendarCredential, error)
}
