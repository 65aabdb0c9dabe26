// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/utils"
)

// actionItemNamespace seeds deterministic action item UIDs, so re-extraction
// of the same transcript yields the same identities.
var actionItemNamespace = uuid.MustParse("6f1c3a52-8d0e-4f4b-9a57-3d2b8e1c7a90")

// dueDateLayouts are the accepted due date formats, most specific first.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ValidatedActionItem is a model-produced item that passed validation.
type ValidatedActionItem struct {
	Description  string
	AssigneeText string
	DueDate      *time.Time
	Priority     string
	// DueDateDropped is set when a due date was given but could not be parsed.
	DueDateDropped bool
}

// ValidateRawItem checks one model-produced item. A missing description is a
// parse error; an unparsable due date or unknown priority is dropped.
func ValidateRawItem(raw models.RawActionItem) (*ValidatedActionItem, error) {
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		return nil, domain.NewParseError("invalid action item", domain.ErrMissingDescription)
	}

	item := &ValidatedActionItem{
		Description:  description,
		AssigneeText: strings.TrimSpace(raw.Assignee),
		Priority:     normalizePriority(raw.Priority),
	}

	if dueDate := strings.TrimSpace(raw.DueDate); dueDate != "" {
		for _, layout := range dueDateLayouts {
			if t, err := time.Parse(layout, dueDate); err == nil {
				t = t.UTC()
				item.DueDate = &t
				break
			}
		}
		item.DueDateDropped = item.DueDate == nil
	}

	return item, nil
}

func normalizePriority(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "high", "urgent", "critical":
		return models.PriorityHigh
	case "medium", "normal", "moderate":
		return models.PriorityMedium
	case "low":
		return models.PriorityLow
	default:
		return ""
	}
}

// ExtractionStage turns a transcript into the meeting's action items and summary.
type ExtractionStage struct {
	transcriptRepository domain.TranscriptRepository
	actionItemRepository domain.ActionItemRepository
	userDirectory        domain.UserDirectory
	llmExtractor         domain.LLMExtractor
	integrationLog       *IntegrationLogService
	config               ServiceConfig
	now                  func() time.Time
}

// NewExtractionStage creates a new ExtractionStage
func NewExtractionStage(
	transcriptRepository domain.TranscriptRepository,
	actionItemRepository domain.ActionItemRepository,
	userDirectory domain.UserDirectory,
	llmExtractor domain.LLMExtractor,
	integrationLog *IntegrationLogService,
	serviceConfig ServiceConfig,
) *ExtractionStage {
	return &ExtractionStage{
		transcriptRepository: transcriptRepository,
		actionItemRepository: actionItemRepository,
		userDirectory:        userDirectory,
		llmExtractor:         llmExtractor,
		integrationLog:       integrationLog,
		config:               serviceConfig,
		now:                  time.Now,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *ExtractionStage) ServiceReady() bool {
	return s.transcriptRepository != nil &&
		s.actionItemRepository != nil &&
		s.userDirectory != nil &&
		s.llmExtractor != nil &&
		s.integrationLog != nil
}

// Status returns the meeting status the stage runs in.
func (s *ExtractionStage) Status() models.MeetingStatus {
	return models.MeetingStatusExtracting
}

// Run extracts and validates action items, resolves assignees, replaces the
// meeting's action item set and sets the summary on the meeting. The summary
// is persisted by the coordinator together with the next status.
func (s *ExtractionStage) Run(ctx context.Context, meeting *models.Meeting) error {
	transcript, err := s.transcriptRepository.GetTranscript(ctx, meeting.UID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return domain.NewPermanentError("meeting has no transcript", err)
		}
		slog.ErrorContext(ctx, "failed to load transcript", logging.ErrKey, err)
		return err
	}
	if !transcript.IsUsable() {
		return domain.NewPermanentError("transcript is unusable", domain.ErrEmptyTranscript)
	}

	// The item and summary requests are independent model calls.
	var (
		rawItems []models.RawActionItem
		summary  string
	)
	err = concurrent.NewWorkerPool(2).Run(ctx,
		func() (err error) {
			rawItems, err = s.extractActionItems(ctx, meeting, transcript.FullText)
			return err
		},
		func() (err error) {
			summary, err = s.summarize(ctx, meeting, transcript.FullText)
			return err
		},
	)
	if err != nil {
		return err
	}

	users, err := s.userDirectory.ListUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list users for assignee resolution", logging.ErrKey, err)
		return err
	}
	resolver := NewAssigneeResolver(users)

	now := s.now().UTC()
	list := &models.ActionItemList{
		MeetingUID: meeting.UID,
		Items:      make([]*models.ActionItem, 0, len(rawItems)),
		UpdatedAt:  now,
	}
	for i, raw := range rawItems {
		validated, err := ValidateRawItem(raw)
		if err != nil {
			slog.WarnContext(ctx, "dropping invalid action item", logging.ErrKey, err, "index", i)
			s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationExtraction, err,
				map[string]any{"index": i, "assignee": raw.Assignee, "due_date": raw.DueDate})
			continue
		}
		if validated.DueDateDropped {
			slog.WarnContext(ctx, "could not parse action item due date", "index", i, "due_date", raw.DueDate)
		}

		item := &models.ActionItem{
			UID:          actionItemUID(meeting.UID, i, validated.Description),
			MeetingUID:   meeting.UID,
			Description:  validated.Description,
			AssigneeText: validated.AssigneeText,
			DueDate:      validated.DueDate,
			Priority:     validated.Priority,
			Status:       models.ActionItemStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if user := resolver.Resolve(validated.AssigneeText); user != nil {
			item.AssigneeUID = utils.StringPtr(user.UID)
		}
		list.Items = append(list.Items, item)
	}

	if err := s.actionItemRepository.ReplaceActionItems(ctx, list); err != nil {
		slog.ErrorContext(ctx, "failed to store action items", logging.ErrKey, err)
		return err
	}

	meeting.Summary = utils.StringPtr(summary)

	slog.InfoContext(ctx, "extracted action items",
		"raw_items", len(rawItems),
		"stored_items", len(list.Items),
	)
	return nil
}

func (s *ExtractionStage) extractActionItems(ctx context.Context, meeting *models.Meeting, text string) ([]models.RawActionItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.callTimeout())
	defer cancel()

	rawItems, err := s.llmExtractor.ExtractActionItems(callCtx, text, meeting.CreatedAt)
	details := map[string]any{"operation": "action_items"}
	if err == nil {
		details["items"] = len(rawItems)
	}
	s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationExtraction, err, details)
	if err != nil {
		slog.WarnContext(ctx, "action item extraction failed", logging.ErrKey, err)
		return nil, err
	}
	return rawItems, nil
}

func (s *ExtractionStage) summarize(ctx context.Context, meeting *models.Meeting, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.callTimeout())
	defer cancel()

	summary, err := s.llmExtractor.Summarize(callCtx, text)
	s.integrationLog.Record(ctx, models.EntityTypeMeeting, meeting.UID, models.IntegrationExtraction, err,
		map[string]any{"operation": "summary"})
	if err != nil {
		slog.WarnContext(ctx, "meeting summary failed", logging.ErrKey, err)
		return "", err
	}
	return summary, nil
}

func actionItemUID(meetingUID string, index int, description string) string {
	return uuid.NewSHA1(actionItemNamespace, []byte(fmt.Sprintf("%s/%d/%s", meetingUID, index, description))).String()
}
