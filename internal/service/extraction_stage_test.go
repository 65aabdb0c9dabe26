// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/utils"
)

func TestValidateRawItem(t *testing.T) {
	tests := []struct {
		name             string
		raw              models.RawActionItem
		expectedErr      bool
		expectedDue      *time.Time
		expectedPriority string
		expectedDropped  bool
	}{
		{
			name:             "full item with date only due date",
			raw:              models.RawActionItem{Description: " Ship the release ", Assignee: "Alice", DueDate: "2026-03-09", Priority: "High"},
			expectedDue:      utils.TimePtr(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)),
			expectedPriority: models.PriorityHigh,
		},
		{
			name:        "RFC3339 due date is normalized to UTC",
			raw:         models.RawActionItem{Description: "Review", DueDate: "2026-03-09T10:00:00+02:00"},
			expectedDue: utils.TimePtr(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)),
		},
		{
			name:            "unparsable due date is dropped",
			raw:             models.RawActionItem{Description: "Review", DueDate: "next Friday"},
			expectedDropped: true,
		},
		{
			name:             "priority synonyms",
			raw:              models.RawActionItem{Description: "Fix outage", Priority: "urgent"},
			expectedPriority: models.PriorityHigh,
		},
		{
			name:             "normal maps to medium",
			raw:              models.RawActionItem{Description: "Fix docs", Priority: "Normal"},
			expectedPriority: models.PriorityMedium,
		},
		{
			name: "unknown priority is empty",
			raw:  models.RawActionItem{Description: "Fix docs", Priority: "whenever"},
		},
		{
			name:        "missing description",
			raw:         models.RawActionItem{Description: "   ", Assignee: "Bob"},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ValidateRawItem(tt.raw)
			if tt.expectedErr {
				require.Error(t, err)
				assert.Equal(t, domain.ErrorTypeParse, domain.GetErrorType(err))
				assert.ErrorIs(t, err, domain.ErrMissingDescription)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, item.Description)
			assert.Equal(t, tt.expectedPriority, item.Priority)
			assert.Equal(t, tt.expectedDropped, item.DueDateDropped)
			if tt.expectedDue == nil {
				assert.Nil(t, item.DueDate)
			} else if assert.NotNil(t, item.DueDate) {
				assert.True(t, tt.expectedDue.Equal(*item.DueDate), "due date %s", item.DueDate)
			}
		})
	}
}

func TestExtractionStage_Run(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusExtracting)
	require.NoError(t, f.transcripts.UpsertTranscript(ctx, &models.Transcript{MeetingUID: meeting.UID, FullText: "Alice will ship it"}))

	f.llm.On("ExtractActionItems", mock.Anything, "Alice will ship it", meeting.CreatedAt).Return([]models.RawActionItem{
		{Description: "Ship the release", Assignee: "ALICE", DueDate: "2026-03-09", Priority: "high"},
		{Description: "", Assignee: "Bob"},
		{Description: "Find a venue", Assignee: "Carol"},
	}, nil).Once()
	f.llm.On("Summarize", mock.Anything, "Alice will ship it").Return("Release planning.", nil).Once()

	err := f.extraction.Run(ctx, meeting)
	require.NoError(t, err)

	require.NotNil(t, meeting.Summary)
	assert.Equal(t, "Release planning.", *meeting.Summary)

	items := f.items(t, meeting.UID)
	require.Len(t, items, 2)
	assert.Equal(t, "Ship the release", items[0].Description)
	require.True(t, items[0].IsAssigned())
	assert.Equal(t, aliceUID, *items[0].AssigneeUID)
	assert.Equal(t, models.PriorityHigh, items[0].Priority)
	assert.Equal(t, models.ActionItemStatusPending, items[0].Status)
	assert.False(t, items[0].Notified)
	assert.False(t, items[1].IsAssigned())
	assert.Equal(t, "Carol", items[1].AssigneeText)

	entries := f.entries(t, models.EntityTypeMeeting, meeting.UID, models.IntegrationExtraction)
	var parseErrors, successes int
	for _, entry := range entries {
		if entry.Outcome == models.OutcomeSuccess {
			successes++
		}
		if entry.ErrorType == domain.ErrorTypeParse.String() {
			parseErrors++
		}
	}
	assert.Equal(t, 2, successes)
	assert.Equal(t, 1, parseErrors)
	f.llm.AssertExpectations(t)
}

func TestExtractionStage_RunReplacesItemsWithStableUIDs(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusExtracting)
	require.NoError(t, f.transcripts.UpsertTranscript(ctx, &models.Transcript{MeetingUID: meeting.UID, FullText: "text"}))

	f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).Return([]models.RawActionItem{
		{Description: "One"},
		{Description: "Two"},
	}, nil)
	f.llm.On("Summarize", mock.Anything, mock.Anything).Return("summary", nil)

	require.NoError(t, f.extraction.Run(ctx, meeting))
	first := f.items(t, meeting.UID)
	require.NoError(t, f.extraction.Run(ctx, meeting))
	second := f.items(t, meeting.UID)

	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].UID, second[i].UID)
	}
}

func TestExtractionStage_RunRequestsItemsAndSummaryConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t)
	meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusExtracting)
	require.NoError(t, f.transcripts.UpsertTranscript(ctx, &models.Transcript{MeetingUID: meeting.UID, FullText: "text"}))

	// Each call waits for the other to start.
	itemsStarted := make(chan struct{})
	summaryStarted := make(chan struct{})
	waitFor := func(ch <-chan struct{}) {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Error("model calls did not overlap")
		}
	}
	f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(itemsStarted)
			waitFor(summaryStarted)
		}).
		Return([]models.RawActionItem{{Description: "One"}}, nil).Once()
	f.llm.On("Summarize", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(summaryStarted)
			waitFor(itemsStarted)
		}).
		Return("summary", nil).Once()

	require.NoError(t, f.extraction.Run(ctx, meeting))
	assert.Len(t, f.items(t, meeting.UID), 1)
	require.NotNil(t, meeting.Summary)
	assert.Equal(t, "summary", *meeting.Summary)
}

func TestExtractionStage_RunErrors(t *testing.T) {
	tests := []struct {
		name         string
		transcript   *models.Transcript
		setupMocks   func(f *pipelineFixture)
		expectedType domain.ErrorType
	}{
		{
			name:         "missing transcript is permanent",
			expectedType: domain.ErrorTypePermanent,
		},
		{
			name:         "blank transcript is permanent",
			transcript:   &models.Transcript{FullText: "  \n "},
			expectedType: domain.ErrorTypePermanent,
		},
		{
			name:       "malformed model response is transient",
			transcript: &models.Transcript{FullText: "text"},
			setupMocks: func(f *pipelineFixture) {
				f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, domain.NewTransientError("model did not return a list", errors.New("invalid character")))
				f.llm.On("Summarize", mock.Anything, mock.Anything).Return("summary", nil).Maybe()
			},
			expectedType: domain.ErrorTypeTransient,
		},
		{
			name:       "rejected summary request is permanent",
			transcript: &models.Transcript{FullText: "text"},
			setupMocks: func(f *pipelineFixture) {
				f.llm.On("ExtractActionItems", mock.Anything, mock.Anything, mock.Anything).Return([]models.RawActionItem{}, nil).Maybe()
				f.llm.On("Summarize", mock.Anything, mock.Anything).Return("", domain.NewPermanentError("bad request"))
			},
			expectedType: domain.ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newPipelineFixture(t)
			meeting := f.createMeeting(t, "meeting-1", models.MeetingStatusExtracting)
			if tt.transcript != nil {
				tt.transcript.MeetingUID = meeting.UID
				require.NoError(t, f.transcripts.UpsertTranscript(ctx, tt.transcript))
			}
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			err := f.extraction.Run(ctx, meeting)

			require.Error(t, err)
			assert.Equal(t, tt.expectedType, domain.GetErrorType(err))
			assert.Nil(t, meeting.Summary)
		})
	}
}
