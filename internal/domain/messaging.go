// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// JobQueue accepts pipeline jobs. Enqueue is fire-and-forget with
// at-least-once delivery; there is no ordering between distinct meetings.
type JobQueue interface {
	Enqueue(ctx context.Context, meetingUID string, reason string) error
}

// JobDelivery is one delivery of a pipeline job. Exactly one of Ack, Retry or
// Term should be called per delivery.
type JobDelivery interface {
	Job() models.PipelineJob
	// Attempt is the 1-based delivery count for the job.
	Attempt() int
	Ack() error
	Retry(delay time.Duration) error
	Term() error
}

// JobSource hands out job deliveries until ctx is done, then closes the channel.
type JobSource interface {
	Consume(ctx context.Context) (<-chan JobDelivery, error)
}

// MeetingEventSender handles pipeline lifecycle events.
type MeetingEventSender interface {
	SendMeetingStatusChanged(ctx context.Context, data models.MeetingStatusChangedMessage) error
}

// MessageBuilder is the main interface that composes all messaging capabilities.
type MessageBuilder interface {
	MeetingEventSender
}
