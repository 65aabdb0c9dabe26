// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// MockMeetingRepository implements MeetingRepository for testing
type MockMeetingRepository struct {
	mock.Mock
}

func (m *MockMeetingRepository) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *MockMeetingRepository) MeetingExists(ctx context.Context, meetingUID string) (bool, error) {
	args := m.Called(ctx, meetingUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMeetingRepository) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) GetMeetingWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.Meeting), args.Get(1).(uint64), args.Error(2)
}

func (m *MockMeetingRepository) UpdateMeeting(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	args := m.Called(ctx, meeting, revision)
	return args.Error(0)
}

// MockTranscriptRepository implements TranscriptRepository for testing
type MockTranscriptRepository struct {
	mock.Mock
}

func (m *MockTranscriptRepository) GetTranscript(ctx context.Context, meetingUID string) (*models.Transcript, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transcript), args.Error(1)
}

func (m *MockTranscriptRepository) UpsertTranscript(ctx context.Context, transcript *models.Transcript) error {
	args := m.Called(ctx, transcript)
	return args.Error(0)
}

// MockActionItemRepository implements ActionItemRepository for testing
type MockActionItemRepository struct {
	mock.Mock
}

func (m *MockActionItemRepository) GetActionItems(ctx context.Context, meetingUID string) (*models.ActionItemList, uint64, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.ActionItemList), args.Get(1).(uint64), args.Error(2)
}

func (m *MockActionItemRepository) ReplaceActionItems(ctx context.Context, list *models.ActionItemList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *MockActionItemRepository) UpdateActionItems(ctx context.Context, list *models.ActionItemList, revision uint64) error {
	args := m.Called(ctx, list, revision)
	return args.Error(0)
}

// MockIntegrationLogRepository implements IntegrationLogRepository for testing
type MockIntegrationLogRepository struct {
	mock.Mock
}

func (m *MockIntegrationLogRepository) AppendEntry(ctx context.Context, entry *models.IntegrationLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockIntegrationLogRepository) ListEntries(ctx context.Context, entityType models.EntityType, entityUID string) ([]*models.IntegrationLogEntry, error) {
	args := m.Called(ctx, entityType, entityUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.IntegrationLogEntry), args.Error(1)
}

func (m *MockIntegrationLogRepository) ListEntriesForIntegration(ctx context.Context, entityType models.EntityType, entityUID string, integration models.IntegrationType) ([]*models.IntegrationLogEntry, error) {
	args := m.Called(ctx, entityType, entityUID, integration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.IntegrationLogEntry), args.Error(1)
}

// MockUserDirectory implements UserDirectory for testing
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserDirectory) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) ChatCredential(ctx context.Context, userUID string) (*models.ChatCredential, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatCredential), args.Error(1)
}

func (m *MockCredentialStore) CalendarCredential(ctx context.Context, userUID string) (*models.CalendarCredential, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarCredential), args.Error(1)
}
