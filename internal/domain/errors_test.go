// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrMeetingNotFound", err: ErrMeetingNotFound, expected: "meeting not found"},
		{name: "ErrTranscriptNotFound", err: ErrTranscriptNotFound, expected: "transcript not found"},
		{name: "ErrRecordingMissing", err: ErrRecordingMissing, expected: "meeting has no recording reference"},
		{name: "ErrEmptyTranscript", err: ErrEmptyTranscript, expected: "transcript is empty"},
		{name: "ErrMissingDescription", err: ErrMissingDescription, expected: "action item description is required"},
		{name: "ErrNoAssignee", err: ErrNoAssignee, expected: "action item has no resolvable assignee"},
		{name: "ErrMissingCredential", err: ErrMissingCredential, expected: "user has no integration credential"},
		{name: "ErrInternal", err: ErrInternal, expected: "internal error"},
		{name: "ErrServiceUnavailable", err: ErrServiceUnavailable, expected: "service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	errorVars := []error{
		ErrMeetingNotFound,
		ErrTranscriptNotFound,
		ErrRecordingMissing,
		ErrEmptyTranscript,
		ErrMissingDescription,
		ErrNoAssignee,
		ErrMissingCredential,
		ErrInternal,
		ErrServiceUnavailable,
	}

	for i, err1 := range errorVars {
		for j, err2 := range errorVars {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v are considered equal", err1, err2)
			}
		}
	}
}

func TestDomainError_Wrapping(t *testing.T) {
	err := NewNotFoundError("meeting m1 not found", ErrMeetingNotFound)

	assert.Equal(t, "meeting m1 not found: meeting not found", err.Error())
	assert.True(t, errors.Is(err, ErrMeetingNotFound))
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(fmt.Errorf("advance: %w", err)))

	bare := NewPermanentError("unsupported audio")
	assert.Equal(t, "unsupported audio", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{name: "validation", err: NewValidationError("bad"), expected: ErrorTypeValidation},
		{name: "transient", err: NewTransientError("rate limited"), expected: ErrorTypeTransient},
		{name: "permanent", err: NewPermanentError("unsupported"), expected: ErrorTypePermanent},
		{name: "auth", err: NewAuthError("no token"), expected: ErrorTypeAuth},
		{name: "parse", err: NewParseError("no description"), expected: ErrorTypeParse},
		{name: "state conflict", err: NewStateConflictError("terminal"), expected: ErrorTypeStateConflict},
		{name: "deadline exceeded", err: fmt.Errorf("call: %w", context.DeadlineExceeded), expected: ErrorTypeTransient},
		{name: "plain error", err: errors.New("boom"), expected: ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorType(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "transient", err: NewTransientError("timeout"), expected: true},
		{name: "unavailable store", err: NewUnavailableError("kv down"), expected: true},
		{name: "revision conflict", err: NewConflictError("revision mismatch"), expected: true},
		{name: "deadline", err: context.DeadlineExceeded, expected: true},
		{name: "not found", err: NewNotFoundError("gone"), expected: false},
		{name: "permanent", err: NewPermanentError("bad audio"), expected: false},
		{name: "auth", err: NewAuthError("no credential"), expected: false},
		{name: "state conflict", err: NewStateConflictError("terminal"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "not_found", ErrorTypeNotFound.String())
	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "permanent", ErrorTypePermanent.String())
	assert.Equal(t, "auth", ErrorTypeAuth.String())
	assert.Equal(t, "parse", ErrorTypeParse.String())
	assert.Equal(t, "state_conflict", ErrorTypeStateConflict.String())
	assert.Equal(t, "internal", ErrorTypeInternal.String())
}
