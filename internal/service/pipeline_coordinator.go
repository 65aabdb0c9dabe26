// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/observability"
)

// PipelineCoordinator drives a meeting through its pipeline statuses. It is
// the only writer of the meeting status.
type PipelineCoordinator struct {
	meetingRepository domain.MeetingRepository
	locker            domain.MeetingLocker
	eventSender       domain.MeetingEventSender
	metrics           *observability.PipelineMetrics
	stages            map[models.MeetingStatus]Stage
	now               func() time.Time
}

// NewPipelineCoordinator creates a new PipelineCoordinator. Each stage is
// registered under the status it runs in. The event sender and metrics may
// be nil.
func NewPipelineCoordinator(
	meetingRepository domain.MeetingRepository,
	locker domain.MeetingLocker,
	eventSender domain.MeetingEventSender,
	metrics *observability.PipelineMetrics,
	stages ...Stage,
) *PipelineCoordinator {
	byStatus := make(map[models.MeetingStatus]Stage, len(stages))
	for _, stage := range stages {
		byStatus[stage.Status()] = stage
	}
	return &PipelineCoordinator{
		meetingRepository: meetingRepository,
		locker:            locker,
		eventSender:       eventSender,
		metrics:           metrics,
		stages:            byStatus,
		now:               time.Now,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (c *PipelineCoordinator) ServiceReady() bool {
	if c.meetingRepository == nil || c.locker == nil {
		return false
	}
	for _, status := range []models.MeetingStatus{
		models.MeetingStatusTranscribing,
		models.MeetingStatusExtracting,
		models.MeetingStatusNotifying,
	} {
		stage, ok := c.stages[status]
		if !ok || !stage.ServiceReady() {
			return false
		}
	}
	return true
}

// Advance moves the meeting by at most one step and returns its status
// afterwards. Terminal meetings are left alone. A retryable stage error keeps
// the status; any other stage error fails the meeting. Both are returned.
func (c *PipelineCoordinator) Advance(ctx context.Context, meetingUID string) (models.MeetingStatus, error) {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	unlock, err := c.locker.Lock(ctx, meetingUID)
	if err != nil {
		slog.WarnContext(ctx, "failed to acquire meeting lock", logging.ErrKey, err)
		return "", err
	}
	defer unlock()

	meeting, revision, err := c.meetingRepository.GetMeetingWithRevision(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.ErrorContext(ctx, "failed to load meeting", logging.ErrKey, err)
		}
		return "", err
	}

	from := meeting.Status
	ctx = logging.AppendCtx(ctx, slog.String("status", string(from)))

	if from.IsTerminal() {
		slog.DebugContext(ctx, "meeting is terminal, nothing to do")
		return from, nil
	}

	if from == models.MeetingStatusPending {
		return c.transition(ctx, meeting, revision, models.MeetingStatusTranscribing, "")
	}

	stage, ok := c.stages[from]
	if !ok {
		slog.ErrorContext(ctx, "no stage registered for meeting status", logging.PriorityCritical())
		return from, domain.NewInternalError(fmt.Sprintf("no stage registered for status %s", from))
	}

	started := c.now()
	runErr := stage.Run(ctx, meeting)
	duration := c.now().Sub(started)

	if runErr != nil {
		if ctx.Err() != nil || domain.IsRetryable(runErr) {
			c.metrics.RecordStageRun(string(from), observability.OutcomeRetryable, duration)
			slog.WarnContext(ctx, "stage failed, will retry", logging.ErrKey, runErr)
			if ctx.Err() != nil && !domain.IsRetryable(runErr) {
				return from, domain.NewTransientError("stage interrupted", runErr)
			}
			return from, runErr
		}

		c.metrics.RecordStageRun(string(from), observability.OutcomeFailed, duration)
		slog.ErrorContext(ctx, "stage failed permanently", logging.ErrKey, runErr)
		status, err := c.transition(ctx, meeting, revision, models.MeetingStatusFailed, runErr.Error())
		if err != nil {
			return status, err
		}
		return status, runErr
	}

	c.metrics.RecordStageRun(string(from), observability.OutcomeSuccess, duration)
	next, _ := from.Next()
	return c.transition(ctx, meeting, revision, next, "")
}

// Run advances the meeting until it reaches a terminal status or a step
// returns an error.
func (c *PipelineCoordinator) Run(ctx context.Context, meetingUID string) error {
	// Every forward step plus the conflicts a concurrent writer can cause.
	maxSteps := 2 * len(models.AllMeetingStatuses())

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return domain.NewTransientError("pipeline run interrupted", err)
		}
		status, err := c.Advance(ctx, meetingUID)
		if err != nil {
			return err
		}
		if status.IsTerminal() {
			return nil
		}
	}

	return domain.NewConflictError(fmt.Sprintf("meeting %s did not settle after %d steps", meetingUID, maxSteps))
}

// Fail moves a non-terminal meeting to failed. It does nothing for terminal
// meetings.
func (c *PipelineCoordinator) Fail(ctx context.Context, meetingUID string, cause error) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	unlock, err := c.locker.Lock(ctx, meetingUID)
	if err != nil {
		return err
	}
	defer unlock()

	meeting, revision, err := c.meetingRepository.GetMeetingWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.Status.IsTerminal() {
		return nil
	}

	reason := "pipeline failed"
	if cause != nil {
		reason = cause.Error()
	}
	_, err = c.transition(ctx, meeting, revision, models.MeetingStatusFailed, reason)
	return err
}

// transition writes the next status together with any data the stage set on
// the meeting. A lost revision race is not an error: the caller re-reads.
func (c *PipelineCoordinator) transition(
	ctx context.Context,
	meeting *models.Meeting,
	revision uint64,
	to models.MeetingStatus,
	reason string,
) (models.MeetingStatus, error) {
	from := meeting.Status
	now := c.now().UTC()

	if err := meeting.TransitionTo(to, now); err != nil {
		slog.WarnContext(ctx, "rejected meeting status transition", logging.ErrKey, err, "to", to)
		return from, domain.NewStateConflictError("invalid transition", err)
	}
	if to == models.MeetingStatusFailed {
		meeting.FailureReason = reason
	}

	if err := c.meetingRepository.UpdateMeeting(ctx, meeting, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			c.metrics.RecordStageRun(string(from), observability.OutcomeConflict, 0)
			slog.InfoContext(ctx, "meeting changed concurrently, status write skipped", "to", to)
			return from, nil
		}
		slog.ErrorContext(ctx, "failed to write meeting status", logging.ErrKey, err, "to", to)
		return from, err
	}

	c.metrics.RecordTransition(string(from), string(to))
	slog.InfoContext(ctx, "meeting status changed", "from", from, "to", to)

	if c.eventSender != nil {
		err := c.eventSender.SendMeetingStatusChanged(ctx, models.MeetingStatusChangedMessage{
			MeetingUID: meeting.UID,
			From:       from,
			To:         to,
			Reason:     reason,
			ChangedAt:  now,
			Tags:       meeting.Tags(),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to send meeting status changed message", logging.ErrKey, err)
		}
	}

	return to, nil
}
