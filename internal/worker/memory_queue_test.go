// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
)

func receive(t *testing.T, deliveries <-chan domain.JobDelivery) domain.JobDelivery {
	t.Helper()
	select {
	case delivery := <-deliveries:
		return delivery
	case <-time.After(time.Second):
		t.Fatal("no delivery received")
		return nil
	}
}

func TestMemoryQueue_EnqueueAndConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := NewMemoryQueue(4)

	deliveries, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(ctx, "meeting-1", "recording uploaded"))

	delivery := receive(t, deliveries)
	assert.Equal(t, "meeting-1", delivery.Job().MeetingUID)
	assert.Equal(t, "recording uploaded", delivery.Job().Reason)
	assert.False(t, delivery.Job().EnqueuedAt.IsZero())
	assert.Equal(t, 1, delivery.Attempt())

	require.NoError(t, delivery.Ack())
	assert.ErrorIs(t, delivery.Ack(), ErrAlreadySettled)
	assert.ErrorIs(t, delivery.Term(), ErrAlreadySettled)

	stats := queue.Stats()
	assert.Equal(t, 1, stats.Enqueued)
	assert.Equal(t, 1, stats.Acked)
	assert.Equal(t, 1, stats.Settled())
}

func TestMemoryQueue_RetryRedeliversWithNextAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := NewMemoryQueue(4)
	deliveries, err := queue.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, queue.Enqueue(ctx, "meeting-1", ""))
	first := receive(t, deliveries)
	require.NoError(t, first.Retry(time.Millisecond))

	second := receive(t, deliveries)
	assert.Equal(t, "meeting-1", second.Job().MeetingUID)
	assert.Equal(t, 2, second.Attempt())
	require.NoError(t, second.Term())

	stats := queue.Stats()
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, 1, stats.Terminated)
}

func TestMemoryQueue_EnqueueValidation(t *testing.T) {
	queue := NewMemoryQueue(1)

	err := queue.Enqueue(context.Background(), "", "")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	require.NoError(t, queue.Enqueue(context.Background(), "meeting-1", ""))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = queue.Enqueue(ctx, "meeting-2", "")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))

	queue.Close()
	err = queue.Enqueue(context.Background(), "meeting-3", "")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestMemoryQueue_ConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	queue := NewMemoryQueue(1)
	deliveries, err := queue.Consume(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-deliveries:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("delivery channel was not closed")
	}
}
