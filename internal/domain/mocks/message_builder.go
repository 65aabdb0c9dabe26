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

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendMeetingStatusChanged(ctx context.Context, data models.MeetingStatusChangedMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// MockJobQueue implements JobQueue for testing
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, meetingUID string, reason string) error {
	args := m.Called(ctx, meetingUID, reason)
	return args.Error(0)
}

// MockJobDelivery implements JobDelivery for testing
type MockJobDelivery struct {
	mock.Mock
}

func (m *MockJobDelivery) Job() models.PipelineJob {
	args := m.Called()
	return args.Get(0).(models.PipelineJob)
}

func (m *MockJobDelivery) Attempt() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockJobDelivery) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockJobDelivery) Retry(delay time.Duration) error {
	args := m.Called(delay)
	return args.Error(0)
}

func (m *MockJobDelivery) Term() error {
	args := m.Called()
	return args.Error(0)
}

var _ domain.JobDelivery = (*MockJobDelivery)(nil)
