// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// stubStage is a Stage that returns a fixed error.
type stubStage struct {
	status models.MeetingStatus
	err    error
	calls  int
}

func (s *stubStage) ServiceReady() bool { return true }

func (s *stubStage) Status() models.MeetingStatus { return s.status }

func (s *stubStage) Run(context.Context, *models.Meeting) error {
	s.calls++
	return s.err
}

func newMockedCoordinator(stages ...Stage) (*PipelineCoordinator, *mocks.MockMeetingRepository, *mocks.MockMessageBuilder) {
	repo := &mocks.MockMeetingRepository{}
	locker := &mocks.MockMeetingLocker{}
	locker.On("Lock", mock.Anything, mock.Anything).Return(func() {}, nil)
	events := &mocks.MockMessageBuilder{}
	return NewPipelineCoordinator(repo, locker, events, nil, stages...), repo, events
}

func meetingWithStatus(status models.MeetingStatus) *models.Meeting {
	return &models.Meeting{UID: "meeting-1", Title: "Weekly sync", RecordingRef: "rec", Status: status}
}

func TestPipelineCoordinator_Advance(t *testing.T) {
	tests := []struct {
		name           string
		status         models.MeetingStatus
		stageErr       error
		updateErr      error
		expectedStatus models.MeetingStatus
		expectedErr    bool
		expectUpdate   bool
		expectStageRun bool
		expectedReason string
	}{
		{
			name:           "completed meeting is a no-op",
			status:         models.MeetingStatusCompleted,
			expectedStatus: models.MeetingStatusCompleted,
		},
		{
			name:           "failed meeting is a no-op",
			status:         models.MeetingStatusFailed,
			expectedStatus: models.MeetingStatusFailed,
		},
		{
			name:           "pending moves to transcribing without running a stage",
			status:         models.MeetingStatusPending,
			expectedStatus: models.MeetingStatusTranscribing,
			expectUpdate:   true,
		},
		{
			name:           "successful stage moves forward one step",
			status:         models.MeetingStatusExtracting,
			expectedStatus: models.MeetingStatusNotifying,
			expectUpdate:   true,
			expectStageRun: true,
		},
		{
			name:           "retryable stage error keeps the status",
			status:         models.MeetingStatusTranscribing,
			stageErr:       domain.NewTransientError("timeout"),
			expectedStatus: models.MeetingStatusTranscribing,
			expectedErr:    true,
			expectStageRun: true,
		},
		{
			name:           "permanent stage error fails the meeting",
			status:         models.MeetingStatusTranscribing,
			stageErr:       domain.NewPermanentError("unsupported format"),
			expectedStatus: models.MeetingStatusFailed,
			expectedErr:    true,
			expectUpdate:   true,
			expectStageRun: true,
			expectedReason: "unsupported format",
		},
		{
			name:           "revision conflict on the status write is a no-op",
			status:         models.MeetingStatusNotifying,
			updateErr:      domain.NewConflictError("wrong last sequence"),
			expectedStatus: models.MeetingStatusNotifying,
			expectUpdate:   true,
			expectStageRun: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := []*stubStage{
				{status: models.MeetingStatusTranscribing},
				{status: models.MeetingStatusExtracting},
				{status: models.MeetingStatusNotifying},
			}
			for _, s := range stages {
				if s.status == tt.status {
					s.err = tt.stageErr
				}
			}
			coordinator, repo, events := newMockedCoordinator(stages[0], stages[1], stages[2])

			repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").Return(meetingWithStatus(tt.status), uint64(7), nil)
			if tt.expectUpdate {
				repo.On("UpdateMeeting", mock.Anything, mock.MatchedBy(func(m *models.Meeting) bool {
					return m.FailureReason == tt.expectedReason
				}), uint64(7)).Return(tt.updateErr).Once()
			}
			if tt.expectUpdate && tt.updateErr == nil {
				events.On("SendMeetingStatusChanged", mock.Anything, mock.MatchedBy(func(msg models.MeetingStatusChangedMessage) bool {
					return msg.From == tt.status && msg.To == tt.expectedStatus && msg.MeetingUID == "meeting-1"
				})).Return(nil).Once()
			}

			status, err := coordinator.Advance(context.Background(), "meeting-1")

			assert.Equal(t, tt.expectedStatus, status)
			if tt.expectedErr {
				require.Error(t, err)
				assert.Equal(t, domain.GetErrorType(tt.stageErr), domain.GetErrorType(err))
			} else {
				require.NoError(t, err)
			}

			runs := 0
			for _, s := range stages {
				runs += s.calls
			}
			if tt.expectStageRun {
				assert.Equal(t, 1, runs)
			} else {
				assert.Zero(t, runs)
			}
			if !tt.expectUpdate {
				repo.AssertNotCalled(t, "UpdateMeeting", mock.Anything, mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestPipelineCoordinator_AdvanceMeetingNotFound(t *testing.T) {
	coordinator, repo, _ := newMockedCoordinator()
	repo.On("GetMeetingWithRevision", mock.Anything, "missing").
		Return(nil, uint64(0), domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound))

	_, err := coordinator.Advance(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestPipelineCoordinator_AdvanceLockFailure(t *testing.T) {
	repo := &mocks.MockMeetingRepository{}
	locker := &mocks.MockMeetingLocker{}
	locker.On("Lock", mock.Anything, "meeting-1").Return(nil, domain.NewUnavailableError("redis down"))
	coordinator := NewPipelineCoordinator(repo, locker, nil, nil)

	_, err := coordinator.Advance(context.Background(), "meeting-1")

	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	repo.AssertNotCalled(t, "GetMeetingWithRevision", mock.Anything, mock.Anything)
}

func TestPipelineCoordinator_EventFailureDoesNotFailTransition(t *testing.T) {
	coordinator, repo, events := newMockedCoordinator()
	repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").Return(meetingWithStatus(models.MeetingStatusPending), uint64(1), nil)
	repo.On("UpdateMeeting", mock.Anything, mock.Anything, uint64(1)).Return(nil)
	events.On("SendMeetingStatusChanged", mock.Anything, mock.Anything).Return(errors.New("nats: connection closed"))

	status, err := coordinator.Advance(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusTranscribing, status)
}

func TestPipelineCoordinator_Fail(t *testing.T) {
	t.Run("fails a running meeting", func(t *testing.T) {
		coordinator, repo, events := newMockedCoordinator()
		repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").Return(meetingWithStatus(models.MeetingStatusNotifying), uint64(3), nil)
		repo.On("UpdateMeeting", mock.Anything, mock.MatchedBy(func(m *models.Meeting) bool {
			return m.Status == models.MeetingStatusFailed && m.FailureReason == "retries exhausted"
		}), uint64(3)).Return(nil).Once()
		events.On("SendMeetingStatusChanged", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, coordinator.Fail(context.Background(), "meeting-1", errors.New("retries exhausted")))
		repo.AssertExpectations(t)
	})

	t.Run("terminal meeting is left alone", func(t *testing.T) {
		coordinator, repo, _ := newMockedCoordinator()
		repo.On("GetMeetingWithRevision", mock.Anything, "meeting-1").Return(meetingWithStatus(models.MeetingStatusCompleted), uint64(3), nil)

		require.NoError(t, coordinator.Fail(context.Background(), "meeting-1", errors.New("late failure")))
		repo.AssertNotCalled(t, "UpdateMeeting", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPipelineCoordinator_ServiceReady(t *testing.T) {
	all := []Stage{
		&stubStage{status: models.MeetingStatusTranscribing},
		&stubStage{status: models.MeetingStatusExtracting},
		&stubStage{status: models.MeetingStatusNotifying},
	}

	ready, _, _ := newMockedCoordinator(all...)
	assert.True(t, ready.ServiceReady())

	missingStage, _, _ := newMockedCoordinator(all[:2]...)
	assert.False(t, missingStage.ServiceReady())
}

// statusChanges returns the transitions published by the fixture's event sender.
func statusChanges(f *pipelineFixture) []models.MeetingStatusChangedMessage {
	var changes []models.MeetingStatusChangedMessage
	for _, call := range f.events.Calls {
		if call.Method == "SendMeetingStatusChanged" {
			changes = append(changes, call.Arguments.Get(1).(models.MeetingStatusChangedMessage))
		}
	}
	return changes
}

func TestPipelineCoordinator_RunToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	require.NoError(t, f.users.PutUser(ctx, &models.User{UID: "33333333-3333-4333-8333-333333333333", Name: "John Doe", Email: "john@example.com", ChatUserID: "U-JOHN"}))
	require.NoError(t, f.users.PutUserIntegrations(ctx, &models.UserIntegrations{UserUID: "33333333-3333-4333-8333-333333333333", ChatToken: "xoxb-john"}))
	meeting := f.createMeeting(t, "m1", models.MeetingStatusPending)

	text := "John: send report by Friday. Alice handles emails."
	f.expectTranscription(text)
	f.llm.On("ExtractActionItems", mock.Anything, text, mock.MatchedBy(meeting.CreatedAt.Equal)).Return([]models.RawActionItem{
		{Description: "Send report", Assignee: "John", DueDate: "2026-03-06"},
		{Description: "Handle emails", Assignee: "Alice"},
	}, nil).Once()
	f.llm.On("Summarize", mock.Anything, text).Return("John sends the report; Alice handles emails.", nil).Once()
	f.chat.On("SendDirectMessage", mock.Anything, mock.Anything, mock.Anything).Return("ts", nil)

	require.NoError(t, f.coordinator.Run(ctx, meeting.UID))

	stored := f.meeting(t, meeting.UID)
	assert.Equal(t, models.MeetingStatusCompleted, stored.Status)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, "John sends the report; Alice handles emails.", *stored.Summary)

	items := f.items(t, meeting.UID)
	require.Len(t, items, 2)
	assert.Equal(t, "Send report", items[0].Description)
	require.NotNil(t, items[0].DueDate)
	assert.Equal(t, "2026-03-06", items[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "Handle emails", items[1].Description)
	f.chat.AssertNumberOfCalls(t, "SendDirectMessage", 2)

	// Notified items are backed by a successful chat log entry.
	for _, item := range items {
		require.True(t, item.Notified)
		_, ok, err := f.integrationLog.HasSuccess(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// Statuses only move forward, one step at a time.
	changes := statusChanges(f)
	require.Len(t, changes, 4)
	expected := []models.MeetingStatus{
		models.MeetingStatusPending,
		models.MeetingStatusTranscribing,
		models.MeetingStatusExtracting,
		models.MeetingStatusNotifying,
		models.MeetingStatusCompleted,
	}
	for i, change := range changes {
		assert.Equal(t, expected[i], change.From)
		assert.Equal(t, expected[i+1], change.To)
	}

	// Running a completed meeting again changes nothing.
	require.NoError(t, f.coordinator.Run(ctx, meeting.UID))
	f.stt.AssertNumberOfCalls(t, "Transcribe", 1)
	f.llm.AssertNumberOfCalls(t, "ExtractActionItems", 1)
	f.chat.AssertNumberOfCalls(t, "SendDirectMessage", 2)
	assert.Len(t, f.items(t, meeting.UID), 2)
	assert.Len(t, statusChanges(f), 4)
}

func TestPipelineCoordinator_ConcurrentRunsOnOneMeeting(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "m-concurrent", models.MeetingStatusPending)

	f.expectTranscription("Alice books the venue.")
	f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).Return([]models.RawActionItem{
		{Description: "Book the venue", Assignee: "Alice"},
	}, nil)
	f.llm.On("Summarize", mock.Anything, mock.Anything).Return("Venue booking.", nil)

	const runs = 8
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.coordinator.Run(ctx, meeting.UID)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, models.MeetingStatusCompleted, f.meeting(t, meeting.UID).Status)
	f.stt.AssertNumberOfCalls(t, "Transcribe", 1)
	f.llm.AssertNumberOfCalls(t, "ExtractActionItems", 1)
	f.llm.AssertNumberOfCalls(t, "Summarize", 1)

	transcript, err := f.transcripts.GetTranscript(ctx, meeting.UID)
	require.NoError(t, err)
	assert.Equal(t, "Alice books the venue.", transcript.FullText)
	assert.Len(t, f.items(t, meeting.UID), 1)
	assert.Len(t, statusChanges(f), 4)
}

func TestPipelineCoordinator_RunWithoutResolvableAssignees(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "m2", models.MeetingStatusPending)

	f.expectTranscription("Someone should book a room. Somebody else orders food.")
	f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).Return([]models.RawActionItem{
		{Description: "Book a room", Assignee: "Zed"},
		{Description: "Order food"},
	}, nil)
	f.llm.On("Summarize", mock.Anything, mock.Anything).Return("Logistics.", nil)

	require.NoError(t, f.coordinator.Run(ctx, meeting.UID))

	assert.Equal(t, models.MeetingStatusCompleted, f.meeting(t, meeting.UID).Status)
	for _, item := range f.items(t, meeting.UID) {
		assert.False(t, item.Notified)
		entries := f.entries(t, models.EntityTypeActionItem, item.UID, models.IntegrationChat)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.ErrorTypeAuth.String(), entries[0].ErrorType)
	}
	f.chat.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineCoordinator_RunWithZeroActionItems(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "m3", models.MeetingStatusPending)

	f.expectTranscription("We talked about the weather.")
	f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).Return([]models.RawActionItem{}, nil)
	f.llm.On("Summarize", mock.Anything, mock.Anything).Return("Small talk.", nil)

	require.NoError(t, f.coordinator.Run(ctx, meeting.UID))

	stored := f.meeting(t, meeting.UID)
	assert.Equal(t, models.MeetingStatusCompleted, stored.Status)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, "Small talk.", *stored.Summary)
	assert.Empty(t, f.items(t, meeting.UID))
}

func TestPipelineCoordinator_RunPermanentFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "m4", models.MeetingStatusPending)
	f.recordings.On("OpenRecording", mock.Anything, mock.Anything).
		Return(nil, domain.NewNotFoundError("object not found"))

	err := f.coordinator.Run(ctx, meeting.UID)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypePermanent, domain.GetErrorType(err))
	stored := f.meeting(t, meeting.UID)
	assert.Equal(t, models.MeetingStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.FailureReason)

	entries := f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ErrorTypePermanent.String(), entries[0].ErrorType)
}

func TestPipelineCoordinator_RetryCeiling(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "m5", models.MeetingStatusPending)
	f.recordings.On("OpenRecording", mock.Anything, mock.Anything).Return(&domain.Recording{Body: noopBody{}}, nil)
	f.stt.On("Transcribe", mock.Anything, mock.Anything).Return(nil, domain.NewTransientError("503 from speech service"))

	policy := DefaultRetryPolicy()
	policy.Jitter = 0

	var decision RetryDecision
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := f.coordinator.Run(ContextWithAttempt(ctx, attempt), meeting.UID)
		decision = policy.Decide(err, attempt)
		if decision.Action != RetryActionRetry {
			break
		}
	}
	require.Equal(t, RetryActionExhausted, decision.Action)
	require.NoError(t, f.coordinator.Fail(ctx, meeting.UID, errors.New(decision.Reason)))

	assert.Equal(t, models.MeetingStatusFailed, f.meeting(t, meeting.UID).Status)
	entries := f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationTranscription)
	require.Len(t, entries, policy.MaxAttempts)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Attempt)
		assert.Equal(t, models.OutcomeError, entry.Outcome)
	}
}

type noopBody struct{}

func (noopBody) Read([]byte) (int, error) { return 0, errors.New("unused") }
func (noopBody) Close() error { return nil }
