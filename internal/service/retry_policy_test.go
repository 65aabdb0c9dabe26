// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: time.Second},
		{attempt: 1, expected: time.Second},
		{attempt: 2, expected: 2 * time.Second},
		{attempt: 3, expected: 4 * time.Second},
		{attempt: 4, expected: 8 * time.Second},
		{attempt: 5, expected: 10 * time.Second},
		{attempt: 50, expected: 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_BackoffJitter(t *testing.T) {
	policy := RetryPolicy{
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		Multiplier:     2,
		Jitter:         0.5,
	}

	policy.random = func() float64 { return 1 }
	assert.Equal(t, 6*time.Second, policy.Backoff(3))

	policy.random = func() float64 { return 0 }
	assert.Equal(t, 2*time.Second, policy.Backoff(3))

	// Jitter never drops below the initial backoff.
	assert.Equal(t, time.Second, policy.Backoff(1))
}

func TestRetryPolicy_Decide(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.Jitter = 0

	tests := []struct {
		name     string
		err      error
		attempt  int
		expected RetryAction
	}{
		{name: "success", err: nil, attempt: 1, expected: RetryActionDone},
		{name: "transient with attempts left", err: domain.NewTransientError("timeout"), attempt: 1, expected: RetryActionRetry},
		{name: "unavailable store", err: domain.NewUnavailableError("kv down"), attempt: 2, expected: RetryActionRetry},
		{name: "deadline exceeded", err: context.DeadlineExceeded, attempt: 2, expected: RetryActionRetry},
		{name: "unclassified error", err: errors.New("boom"), attempt: 2, expected: RetryActionRetry},
		{name: "transient at the ceiling", err: domain.NewTransientError("timeout"), attempt: policy.MaxAttempts, expected: RetryActionExhausted},
		{name: "permanent", err: domain.NewPermanentError("bad audio"), attempt: 1, expected: RetryActionDiscard},
		{name: "auth", err: domain.NewAuthError("token revoked"), attempt: 1, expected: RetryActionDiscard},
		{name: "not found", err: domain.NewNotFoundError("meeting not found"), attempt: 1, expected: RetryActionDiscard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Decide(tt.err, tt.attempt)
			assert.Equal(t, tt.expected, decision.Action, decision.Reason)
			if tt.expected == RetryActionRetry {
				assert.Equal(t, policy.Backoff(tt.attempt), decision.Backoff)
			}
		})
	}
}

func TestRetryPolicy_CustomClassifier(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.Retryable = func(error) bool { return false }

	decision := policy.Decide(domain.NewTransientError("timeout"), 1)
	assert.Equal(t, RetryActionDiscard, decision.Action)
}
