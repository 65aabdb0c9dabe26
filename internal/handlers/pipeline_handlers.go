// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

// PipelineHandler turns pipeline trigger messages into jobs.
type PipelineHandler struct {
	meetingRepository domain.MeetingRepository
	jobQueue          domain.JobQueue
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(meetingRepository domain.MeetingRepository, jobQueue domain.JobQueue) *PipelineHandler {
	return &PipelineHandler{
		meetingRepository: meetingRepository,
		jobQueue:          jobQueue,
	}
}

func (h *PipelineHandler) HandlerReady() bool {
	return h.meetingRepository != nil && h.jobQueue != nil
}

// HandleMessage implements domain.MessageHandler interface
func (h *PipelineHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	var response []byte
	var err error

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.RecordingUploadedSubject: h.HandleRecordingUploaded,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		if msg.HasReply() {
			err = msg.Respond(nil)
			if err != nil {
				slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			}
		}
		return
	}

	response, err = handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message",
			logging.ErrKey, err,
		)
		if msg.HasReply() {
			err = msg.Respond(nil)
			if err != nil {
				slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			}
		}
		return
	}

	if msg.HasReply() {
		err = msg.Respond(response)
		if err != nil {
			slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
			return
		}
		slog.DebugContext(ctx, "responded to NATS message", "response", string(response))
	} else {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
	}
}

// HandleRecordingUploaded is the message handler for the recording-uploaded subject.
// The payload is either a JSON object with a meeting_uid or the bare meeting UID.
// It replies with the meeting UID once the job is queued.
func (h *PipelineHandler) HandleRecordingUploaded(ctx context.Context, msg domain.Message) ([]byte, error) {
	meetingUID, err := parseMeetingUID(msg.Data())
	if err != nil {
		slog.ErrorContext(ctx, "error parsing recording uploaded message", logging.ErrKey, err)
		return nil, err
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, err := h.meetingRepository.GetMeeting(ctx, meetingUID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting meeting from NATS KV", logging.ErrKey, err)
		return nil, err
	}

	if meeting.UploadStatus == models.UploadStatusUploading {
		slog.WarnContext(ctx, "recording upload not finished, ignoring trigger")
		return nil, domain.NewValidationError(fmt.Sprintf("recording of meeting %s is still uploading", meetingUID))
	}

	if err := h.jobQueue.Enqueue(ctx, meetingUID, "recording uploaded"); err != nil {
		slog.ErrorContext(ctx, "error enqueuing pipeline job", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "queued pipeline job for meeting", "status", meeting.Status)
	return []byte(meetingUID), nil
}

// parseMeetingUID accepts a RecordingUploadedMessage or a bare UID.
func parseMeetingUID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", domain.NewValidationError("empty recording uploaded message")
	}

	meetingUID := string(data)
	if data[0] == '{' {
		var payload models.RecordingUploadedMessage
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", domain.NewValidationError("invalid recording uploaded message", err)
		}
		meetingUID = payload.MeetingUID
	}

	// Validate that the meeting ID is a valid UUID.
	if _, err := uuid.Parse(meetingUID); err != nil {
		return "", domain.NewValidationError(fmt.Sprintf("invalid meeting UID %q", meetingUID), err)
	}
	return meetingUID, nil
}
