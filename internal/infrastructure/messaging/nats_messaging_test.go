// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// MockNATSConn is a mock implementation of INatsConn
type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNATSConn) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func TestMessageBuilder_sendMessage(t *testing.T) {
	tests := []struct {
		name         string
		publishError error
		expectError  bool
	}{
		{
			name:        "successful send",
			expectError: false,
		},
		{
			name:         "publish error",
			publishError: errors.New("publish failed"),
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockConn := new(MockNATSConn)
			mockConn.On("Publish", "test.subject", []byte("test data")).Return(tt.publishError)

			builder := NewMessageBuilder(mockConn)
			err := builder.sendMessage(context.Background(), "test.subject", []byte("test data"))

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockConn.AssertExpectations(t)
		})
	}
}

func TestMessageBuilder_SendMeetingStatusChanged(t *testing.T) {
	changedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := models.MeetingStatusChangedMessage{
		MeetingUID: "m1",
		From:       models.MeetingStatusExtracting,
		To:         models.MeetingStatusNotifying,
		ChangedAt:  changedAt,
		Tags:       []string{"m1", "meeting_uid:m1", "status:notifying"},
	}

	mockConn := new(MockNATSConn)
	var published []byte
	mockConn.On("Publish", models.MeetingStatusChangedSubject, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).([]byte) }).
		Return(nil)

	builder := NewMessageBuilder(mockConn)
	require.NoError(t, builder.SendMeetingStatusChanged(context.Background(), msg))

	var decoded models.MeetingStatusChangedMessage
	require.NoError(t, json.Unmarshal(published, &decoded))
	assert.Equal(t, msg, decoded)
	mockConn.AssertExpectations(t)
}

func TestMessageBuilder_IsReady(t *testing.T) {
	assert.False(t, (&MessageBuilder{}).IsReady())

	mockConn := new(MockNATSConn)
	mockConn.On("IsConnected").Return(true).Once()
	assert.True(t, NewMessageBuilder(mockConn).IsReady())
}
