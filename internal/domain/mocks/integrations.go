// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// MockRecordingStore implements RecordingStore for testing
type MockRecordingStore struct {
	mock.Mock
}

func (m *MockRecordingStore) OpenRecording(ctx context.Context, recordingRef string) (*domain.Recording, error) {
	args := m.Called(ctx, recordingRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recording), args.Error(1)
}

// MockSpeechToText implements SpeechToText for testing
type MockSpeechToText struct {
	mock.Mock
}

func (m *MockSpeechToText) Transcribe(ctx context.Context, recording *domain.Recording) (*domain.TranscriptionResult, error) {
	args := m.Called(ctx, recording)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TranscriptionResult), args.Error(1)
}

// MockLLMExtractor implements LLMExtractor for testing
type MockLLMExtractor struct {
	mock.Mock
}

func (m *MockLLMExtractor) ExtractActionItems(ctx context.Context, transcript string, meetingDate time.Time) ([]models.RawActionItem, error) {
	args := m.Called(ctx, transcript, meetingDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawActionItem), args.Error(1)
}

func (m *MockLLMExtractor) Summarize(ctx context.Context, transcript string) (string, error) {
	args := m.Called(ctx, transcript)
	return args.String(0), args.Error(1)
}

// MockChatNotifier implements ChatNotifier for testing
type MockChatNotifier struct {
	mock.Mock
}

func (m *MockChatNotifier) SendDirectMessage(ctx context.Context, credential *models.ChatCredential, message domain.ChatMessage) (string, error) {
	args := m.Called(ctx, credential, message)
	return args.String(0), args.Error(1)
}

// MockCalendarService implements CalendarService for testing
type MockCalendarService struct {
	mock.Mock
}

func (m *MockCalendarService) CreateEvent(ctx context.Context, credential *models.CalendarCredential, event domain.CalendarEvent) (string, error) {
	args := m.Called(ctx, credential, event)
	return args.String(0), args.Error(1)
}

// MockMeetingLocker implements MeetingLocker for testing
type MockMeetingLocker struct {
	mock.Mock
}

func (m *MockMeetingLocker) Lock(ctx context.Context, meetingUID string) (func(), error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
