// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// MeetingStatus is the pipeline status of a meeting.
type MeetingStatus string

// Pipeline statuses, in forward order.
const (
	MeetingStatusPending      MeetingStatus = "pending"
	MeetingStatusTranscribing MeetingStatus = "transcribing"
	MeetingStatusExtracting   MeetingStatus = "extracting"
	MeetingStatusNotifying    MeetingStatus = "notifying"
	MeetingStatusCompleted    MeetingStatus = "completed"
	MeetingStatusFailed       MeetingStatus = "failed"
)

// pipelineOrder maps each forward status to its position in the pipeline.
// Failed is not part of the forward order.
var pipelineOrder = map[MeetingStatus]int{
	MeetingStatusPending:      0,
	MeetingStatusTranscribing: 1,
	MeetingStatusExtracting:   2,
	MeetingStatusNotifying:    3,
	MeetingStatusCompleted:    4,
}

// AllMeetingStatuses lists every status, forward order first.
func AllMeetingStatuses() []MeetingStatus {
	return []MeetingStatus{
		MeetingStatusPending,
		MeetingStatusTranscribing,
		MeetingStatusExtracting,
		MeetingStatusNotifying,
		MeetingStatusCompleted,
		MeetingStatusFailed,
	}
}

// IsValid reports whether the status is one of the known statuses.
func (s MeetingStatus) IsValid() bool {
	if s == MeetingStatusFailed {
		return true
	}
	_, ok := pipelineOrder[s]
	return ok
}

// IsTerminal reports whether the status can never change again.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusFailed
}

// Next returns the forward successor of a non-terminal status.
func (s MeetingStatus) Next() (MeetingStatus, bool) {
	switch s {
	case MeetingStatusPending:
		return MeetingStatusTranscribing, true
	case MeetingStatusTranscribing:
		return MeetingStatusExtracting, true
	case MeetingStatusExtracting:
		return MeetingStatusNotifying, true
	case MeetingStatusNotifying:
		return MeetingStatusCompleted, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether moving from s to next is allowed: exactly one
// step forward, or from any non-terminal status to failed.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == MeetingStatusFailed {
		return true
	}
	return pipelineOrder[next] == pipelineOrder[s]+1
}

// UploadStatus tracks the recording upload lifecycle. It is owned by the
// upload collaborator and is never written by the pipeline.
type UploadStatus string

// Upload statuses.
const (
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusUploaded  UploadStatus = "uploaded"
)

// Meeting is a recorded meeting moving through the action item pipeline.
type Meeting struct {
	UID           string        `json:"uid"`
	Title         string        `json:"title"`
	RecordingRef  string        `json:"recording_ref"`
	UploadStatus  UploadStatus  `json:"upload_status,omitempty"`
	Status        MeetingStatus `json:"status"`
	Summary       *string       `json:"summary,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TransitionTo moves the meeting to the next status, enforcing the state machine.
func (m *Meeting) TransitionTo(next MeetingStatus, at time.Time) error {
	if m == nil {
		return fmt.Errorf("meeting is nil")
	}
	if !m.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid meeting status transition %q -> %q", m.Status, next)
	}
	m.Status = next
	m.UpdatedAt = at
	return nil
}

// Tags generates a consistent set of tags for the meeting, used on status events.
func (m *Meeting) Tags() []string {
	if m == nil {
		return nil
	}

	tags := []string{}
	if m.UID != "" {
		tags = append(tags, m.UID, fmt.Sprintf("meeting_uid:%s", m.UID))
	}
	if m.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", m.Status))
	}
	return tags
}
