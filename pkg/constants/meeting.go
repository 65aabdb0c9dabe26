// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Pipeline defaults, overridable through the environment
const (
	// DefaultPipelineWorkers is the number of concurrent pipeline workers
	DefaultPipelineWorkers = 4

	// DefaultPipelineMaxAttempts is the attempt ceiling for a retryable stage failure
	DefaultPipelineMaxAttempts = 5

	// DefaultPipelineInitialBackoff is the delay before the first retry
	DefaultPipelineInitialBackoff = 2 * time.Second

	// DefaultPipelineMaxBackoff caps the exponential retry delay
	DefaultPipelineMaxBackoff = 2 * time.Minute

	// DefaultExternalCallTimeout bounds every call to an external collaborator
	DefaultExternalCallTimeout = 60 * time.Second

	// DefaultNotificationConcurrency bounds the per-meeting notification fan-out
	DefaultNotificationConcurrency = 4

	// JobAckWait is how long a delivered job may run before the job stream redelivers it
	JobAckWait = 15 * time.Minute

	// GracefulShutdownSeconds bounds how long shutdown waits for in-flight work
	GracefulShutdownSeconds = 25

	// MeetingLockTTL bounds how long a distributed meeting lock survives a crashed holder
	MeetingLockTTL = 10 * time.Minute

	// CalendarReminderDuration is the length of an action item calendar reminder
	CalendarReminderDuration = time.Hour

	// SummaryMaxWords is the word limit given to the model for meeting summaries
	SummaryMaxWords = 250
)
