// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the pipeline sends messages about.
const (
	// MeetingStatusChangedSubject is the subject for pipeline status transitions.
	// The subject is of the form: lfx.meeting-pipeline.status_changed
	MeetingStatusChangedSubject = "lfx.meeting-pipeline.status_changed"

	// PipelineJobsSubject is the JetStream subject jobs are published on.
	// The subject is of the form: lfx.meeting-pipeline.jobs
	PipelineJobsSubject = "lfx.meeting-pipeline.jobs"
)

// PipelineQueue is the queue group name for the pipeline subscriptions.
const PipelineQueue = "lfx.meeting-pipeline.queue"

// NATS specific subjects that the pipeline handles messages about.
const (
	// RecordingUploadedSubject is sent by the upload collaborator once the
	// recording is stored. The payload is the meeting UID.
	// The subject is of the form: lfx.meeting-pipeline.recording_uploaded
	RecordingUploadedSubject = "lfx.meeting-pipeline.recording_uploaded"
)

// PipelineTriggerSubjects are the subjects the pipeline subscribes to. The
// pipeline's own job and status subjects share the prefix, so a wildcard
// subscription would receive them too.
var PipelineTriggerSubjects = []string{
	RecordingUploadedSubject,
}

// JetStream names for the job queue.
const (
	PipelineJobsStream   = "MEETING_PIPELINE_JOBS"
	PipelineJobsConsumer = "meeting-pipeline-workers"
)

// PipelineJob is the opaque job that advances a meeting through the pipeline.
type PipelineJob struct {
	MeetingUID string    `json:"meeting_uid"`
	Reason     string    `json:"reason,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RecordingUploadedMessage is the payload of [RecordingUploadedSubject].
type RecordingUploadedMessage struct {
	MeetingUID string `json:"meeting_uid"`
}

// MeetingStatusChangedMessage is published after every status write.
type MeetingStatusChangedMessage struct {
	MeetingUID string        `json:"meeting_uid"`
	From       MeetingStatus `json:"from"`
	To         MeetingStatus `json:"to"`
	Reason     string        `json:"reason,omitempty"`
	ChangedAt  time.Time     `json:"changed_at"`
	Tags       []string      `json:"tags"`
}
