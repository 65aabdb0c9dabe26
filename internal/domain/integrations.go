// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"io"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// RecordingStore resolves a stored recording reference into audio bytes.
// An unknown reference is reported as an error of type [ErrorTypeNotFound].
type RecordingStore interface {
	OpenRecording(ctx context.Context, recordingRef string) (*Recording, error)
}

// Recording is an opened recording. The caller must close Body.
type Recording struct {
	Name        string
	ContentType string
	Size        uint64
	Body        io.ReadCloser
}

// SpeechToText transcribes audio into text with timed segments.
type SpeechToText interface {
	Transcribe(ctx context.Context, recording *Recording) (*TranscriptionResult, error)
}

// TranscriptionResult is the collaborator output of a transcription call.
type TranscriptionResult struct {
	Text     string
	Language string
	Duration float64
	Segments []models.TranscriptSegment
}

// LLMExtractor asks a language model for action items and a summary.
type LLMExtractor interface {
	// ExtractActionItems returns the raw items as produced by the model.
	// A response that is not a list of items is reported as a transient error.
	ExtractActionItems(ctx context.Context, transcript string, meetingDate time.Time) ([]models.RawActionItem, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// ChatNotifier sends a direct chat message to a user.
type ChatNotifier interface {
	// SendDirectMessage returns the delivery receipt of the sent message.
	SendDirectMessage(ctx context.Context, credential *models.ChatCredential, message ChatMessage) (string, error)
}

// ChatMessage is the structured content of an action item notification.
type ChatMessage struct {
	ActionItemUID string
	MeetingUID    string
	MeetingTitle  string
	Description   string
	DueDate       *time.Time
	Priority      string
	LinkURL       string // Optional link back to the meeting
}

// CalendarService creates reminder events on a user's calendar.
type CalendarService interface {
	// CreateEvent returns the external event ID.
	CreateEvent(ctx context.Context, credential *models.CalendarCredential, event CalendarEvent) (string, error)
}

// CalendarEvent is a reminder for an action item.
type CalendarEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}
