// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// NotificationStage notifies assignees of their action items over chat and,
// for items with a due date, adds a reminder to their calendar.
type NotificationStage struct {
	actionItemRepository domain.ActionItemRepository
	credentialStore      domain.CredentialStore
	chatNotifier         domain.ChatNotifier
	// calendarService is optional; calendar reminders are skipped when nil.
	calendarService domain.CalendarService
	integrationLog  *IntegrationLogService
	urlGenerator    *constants.LfxURLGenerator
	config          ServiceConfig
	now             func() time.Time
}

// NewNotificationStage creates a new NotificationStage
func NewNotificationStage(
	actionItemRepository domain.ActionItemRepository,
	credentialStore domain.CredentialStore,
	chatNotifier domain.ChatNotifier,
	calendarService domain.CalendarService,
	integrationLog *IntegrationLogService,
	serviceConfig ServiceConfig,
) *NotificationStage {
	return &NotificationStage{
		actionItemRepository: actionItemRepository,
		credentialStore:      credentialStore,
		chatNotifier:         chatNotifier,
		calendarService:      calendarService,
		integrationLog:       integrationLog,
		urlGenerator:         constants.NewLfxURLGenerator(serviceConfig.LFXEnvironment, serviceConfig.LFXAppOrigin),
		config:               serviceConfig,
		now:                  time.Now,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *NotificationStage) ServiceReady() bool {
	return s.actionItemRepository != nil &&
		s.credentialStore != nil &&
		s.chatNotifier != nil &&
		s.integrationLog != nil
}

// Status returns the meeting status the stage runs in.
func (s *NotificationStage) Status() models.MeetingStatus {
	return models.MeetingStatusNotifying
}

// Run notifies every assigned, not yet notified item. Items are handled
// concurrently and independently; per-item auth and permanent failures are
// logged and skipped. The stage fails transiently if any item failed
// transiently, after saving the progress of the items that succeeded.
func (s *NotificationStage) Run(ctx context.Context, meeting *models.Meeting) error {
	list, revision, err := s.actionItemRepository.GetActionItems(ctx, meeting.UID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "meeting has no action items to notify")
			return nil
		}
		slog.ErrorContext(ctx, "failed to load action items", logging.ErrKey, err)
		return err
	}
	if len(list.Items) == 0 {
		return nil
	}

	changed := make([]bool, len(list.Items))
	functions := make([]func() error, 0, len(list.Items))
	for i, item := range list.Items {
		functions = append(functions, func() error {
			itemCtx := logging.AppendCtx(ctx, slog.String("action_item_uid", item.UID))
			itemChanged, err := s.notifyItem(itemCtx, meeting, item)
			if s.remindItem(itemCtx, meeting, item) {
				itemChanged = true
			}
			changed[i] = itemChanged
			return err
		})
	}

	errs := concurrent.NewWorkerPool(s.config.notificationConcurrency()).RunAll(ctx, functions...)

	anyChanged := false
	for _, c := range changed {
		anyChanged = anyChanged || c
	}
	if anyChanged {
		list.UpdatedAt = s.now().UTC()
		if err := s.actionItemRepository.UpdateActionItems(ctx, list, revision); err != nil {
			slog.ErrorContext(ctx, "failed to save action item notification state", logging.ErrKey, err)
			return err
		}
	}

	if len(errs) > 0 {
		slog.WarnContext(ctx, "some action item notifications failed transiently",
			"failed", len(errs),
			"items", len(list.Items),
		)
		return domain.NewTransientError(fmt.Sprintf("%d action item notifications failed", len(errs)), errs...)
	}
	return nil
}

// notifyItem sends the chat notification for one item. It reports whether
// the item was changed, and returns an error only when a retry may help.
func (s *NotificationStage) notifyItem(ctx context.Context, meeting *models.Meeting, item *models.ActionItem) (bool, error) {
	if item.Notified {
		return false, nil
	}

	if !item.IsAssigned() {
		return false, s.recordUnassigned(ctx, item)
	}

	// A success logged by an earlier attempt whose item write was lost.
	entry, delivered, err := s.integrationLog.HasSuccess(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat)
	if err != nil {
		return false, err
	}
	if delivered {
		messageRef, _ := entry.Details["message_ref"].(string)
		item.MarkNotified(messageRef, s.now().UTC())
		slog.InfoContext(ctx, "restored notified flag from integration log")
		return true, nil
	}

	rejected, err := s.integrationLog.HasPermanentFailure(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat)
	if err != nil {
		return false, err
	}
	if rejected {
		slog.DebugContext(ctx, "skipping action item with a permanent chat failure")
		return false, nil
	}

	credential, err := s.credentialStore.ChatCredential(ctx, *item.AssigneeUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeAuth {
			s.integrationLog.Record(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat, err,
				map[string]any{"assignee_uid": *item.AssigneeUID})
			slog.WarnContext(ctx, "assignee has no chat credential", logging.ErrKey, err)
			return false, nil
		}
		slog.ErrorContext(ctx, "failed to load chat credential", logging.ErrKey, err)
		return false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.callTimeout())
	defer cancel()

	messageRef, err := s.chatNotifier.SendDirectMessage(callCtx, credential, domain.ChatMessage{
		ActionItemUID: item.UID,
		MeetingUID:    meeting.UID,
		MeetingTitle:  meeting.Title,
		Description:   item.Description,
		DueDate:       item.DueDate,
		Priority:      item.Priority,
		LinkURL:       s.urlGenerator.GenerateActionItemURL(meeting.UID, item.UID),
	})
	details := map[string]any{"assignee_uid": *item.AssigneeUID}
	if err == nil {
		details["message_ref"] = messageRef
	}
	s.integrationLog.Record(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat, err, details)

	if err != nil {
		if domain.IsRetryable(err) {
			slog.WarnContext(ctx, "chat notification failed, will retry", logging.ErrKey, err)
			return false, err
		}
		slog.WarnContext(ctx, "chat notification rejected", logging.ErrKey, err)
		return false, nil
	}

	item.MarkNotified(messageRef, s.now().UTC())
	slog.InfoContext(ctx, "notified assignee of action item")
	return true, nil
}

// recordUnassigned logs an unassigned item once; later attempts find the
// entry and stay quiet.
func (s *NotificationStage) recordUnassigned(ctx context.Context, item *models.ActionItem) error {
	logged, err := s.integrationLog.HasPermanentFailure(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat)
	if err != nil {
		return err
	}
	if logged {
		return nil
	}
	s.integrationLog.Record(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationChat,
		domain.NewAuthError("cannot notify action item", domain.ErrNoAssignee),
		map[string]any{"assignee_text": item.AssigneeText})
	slog.WarnContext(ctx, "action item has no assignee", "assignee_text", item.AssigneeText)
	return nil
}

// remindItem creates the calendar reminder for an item with a due date. It
// is best effort: failures are logged and never fail the stage. It reports
// whether the item was changed.
func (s *NotificationStage) remindItem(ctx context.Context, meeting *models.Meeting, item *models.ActionItem) bool {
	if s.calendarService == nil || item.DueDate == nil || item.CalendarEventRef != "" || !item.IsAssigned() {
		return false
	}

	entry, created, err := s.integrationLog.HasSuccess(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationCalendar)
	if err != nil {
		slog.WarnContext(ctx, "failed to read calendar integration log", logging.ErrKey, err)
		return false
	}
	if created {
		eventRef, _ := entry.Details["event_ref"].(string)
		if eventRef == "" {
			return false
		}
		item.CalendarEventRef = eventRef
		item.UpdatedAt = s.now().UTC()
		return true
	}

	rejected, err := s.integrationLog.HasPermanentFailure(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationCalendar)
	if err != nil || rejected {
		return false
	}

	credential, err := s.credentialStore.CalendarCredential(ctx, *item.AssigneeUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeAuth {
			s.integrationLog.Record(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationCalendar, err,
				map[string]any{"assignee_uid": *item.AssigneeUID})
		}
		slog.DebugContext(ctx, "no calendar credential for assignee", logging.ErrKey, err)
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.callTimeout())
	defer cancel()

	start := item.DueDate.UTC()
	eventRef, err := s.calendarService.CreateEvent(callCtx, credential, domain.CalendarEvent{
		Title:       "Action item: " + item.Description,
		Description: fmt.Sprintf("From meeting %q\n%s", meeting.Title, s.urlGenerator.GenerateActionItemURL(meeting.UID, item.UID)),
		Start:       start,
		End:         start.Add(constants.CalendarReminderDuration),
	})
	details := map[string]any{"assignee_uid": *item.AssigneeUID}
	if err == nil {
		details["event_ref"] = eventRef
	}
	s.integrationLog.Record(ctx, models.EntityTypeActionItem, item.UID, models.IntegrationCalendar, err, details)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.WarnContext(ctx, "failed to create calendar reminder", logging.ErrKey, err)
		}
		return false
	}

	item.CalendarEventRef = eventRef
	item.UpdatedAt = s.now().UTC()
	return true
}
