// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/lock"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/store"
)

const (
	aliceUID = "11111111-1111-4111-8111-111111111111"
	bobUID   = "22222222-2222-4222-8222-222222222222"
)

// pipelineFixture wires the real stages and coordinator to in-memory stores
// and mocked collaborators.
type pipelineFixture struct {
	meetings    *store.NatsMeetingRepository
	transcripts *store.NatsTranscriptRepository
	actionItems *store.NatsActionItemRepository
	logs        *store.NatsIntegrationLogRepository
	users       *store.NatsUserRepository

	recordings *mocks.MockRecordingStore
	stt        *mocks.MockSpeechToText
	llm        *mocks.MockLLMExtractor
	chat       *mocks.MockChatNotifier
	calendar   *mocks.MockCalendarService
	events     *mocks.MockMessageBuilder

	integrationLog *IntegrationLogService
	transcription  *TranscriptionStage
	extraction     *ExtractionStage
	notification   *NotificationStage
	coordinator    *PipelineCoordinator
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		meetings:    store.NewNatsMeetingRepository(store.NewMemoryKeyValue("meetings")),
		transcripts: store.NewNatsTranscriptRepository(store.NewMemoryKeyValue("transcripts")),
		actionItems: store.NewNatsActionItemRepository(store.NewMemoryKeyValue("action-items")),
		logs:        store.NewNatsIntegrationLogRepository(store.NewMemoryKeyValue("integration-logs")),
		users:       store.NewNatsUserRepository(store.NewMemoryKeyValue("users"), store.NewMemoryKeyValue("user-integrations")),
		recordings:  &mocks.MockRecordingStore{},
		stt:         &mocks.MockSpeechToText{},
		llm:         &mocks.MockLLMExtractor{},
		chat:        &mocks.MockChatNotifier{},
		calendar:    &mocks.MockCalendarService{},
		events:      &mocks.MockMessageBuilder{},
	}
	f.events.On("SendMeetingStatusChanged", mock.Anything, mock.Anything).Return(nil).Maybe()

	config := ServiceConfig{
		ExternalCallTimeout:     5 * time.Second,
		NotificationConcurrency: 2,
		LFXEnvironment:          "dev",
	}
	f.integrationLog = NewIntegrationLogService(f.logs, nil)
	f.transcription = NewTranscriptionStage(f.recordings, f.stt, f.transcripts, f.integrationLog, config)
	f.extraction = NewExtractionStage(f.transcripts, f.actionItems, f.users, f.llm, f.integrationLog, config)
	f.notification = NewNotificationStage(f.actionItems, f.users, f.chat, f.calendar, f.integrationLog, config)
	f.coordinator = NewPipelineCoordinator(f.meetings, lock.NewLocalLocker(), f.events, nil,
		f.transcription, f.extraction, f.notification)

	ctx := context.Background()
	require.NoError(t, f.users.PutUser(ctx, &models.User{UID: aliceUID, Name: "Alice Smith", Email: "alice@example.com", ChatUserID: "U-ALICE"}))
	require.NoError(t, f.users.PutUser(ctx, &models.User{UID: bobUID, Name: "Bob Jones", Email: "bob@example.com", ChatUserID: "U-BOB"}))
	require.NoError(t, f.users.PutUserIntegrations(ctx, &models.UserIntegrations{UserUID: aliceUID, ChatToken: "xoxb-alice"}))

	return f
}

// createMeeting stores a meeting in the given status.
func (f *pipelineFixture) createMeeting(t *testing.T, uid string, status models.MeetingStatus) *models.Meeting {
	t.Helper()
	meeting := &models.Meeting{
		UID:          uid,
		Title:        "Weekly sync",
		RecordingRef: "recordings/" + uid + ".mp3",
		UploadStatus: models.UploadStatusUploaded,
		Status:       status,
		CreatedAt:    time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.meetings.CreateMeeting(context.Background(), meeting))
	return meeting
}

func (f *pipelineFixture) meeting(t *testing.T, uid string) *models.Meeting {
	t.Helper()
	meeting, err := f.meetings.GetMeeting(context.Background(), uid)
	require.NoError(t, err)
	return meeting
}

func (f *pipelineFixture) items(t *testing.T, uid string) []*models.ActionItem {
	t.Helper()
	list, _, err := f.actionItems.GetActionItems(context.Background(), uid)
	require.NoError(t, err)
	return list.Items
}

func (f *pipelineFixture) entries(t *testing.T, entityType models.EntityType, uid string, integration models.IntegrationType) []*models.IntegrationLogEntry {
	t.Helper()
	entries, err := f.logs.ListEntriesForIntegration(context.Background(), entityType, uid, integration)
	require.NoError(t, err)
	return entries
}

// expectTranscription makes the recording store and speech-to-text succeed.
func (f *pipelineFixture) expectTranscription(text string) {
	f.recordings.On("OpenRecording", mock.Anything, mock.Anything).Return(&domain.Recording{
		Name:        "meeting.mp3",
		ContentType: "audio/mpeg",
		Body:        io.NopCloser(strings.NewReader("audio")),
	}, nil)
	f.stt.On("Transcribe", mock.Anything, mock.Anything).Return(&domain.TranscriptionResult{
		Text:     text,
		Language: "en",
		Duration: 42,
		Segments: []models.TranscriptSegment{{Start: 0, End: 42, Text: text}},
	}, nil)
}
