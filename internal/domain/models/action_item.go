// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ActionItemStatus is the work status of an action item.
type ActionItemStatus string

// Action item statuses.
const (
	ActionItemStatusPending   ActionItemStatus = "pending"
	ActionItemStatusCompleted ActionItemStatus = "completed"
)

// Action item priorities, as normalized from model output.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ActionItem is a unit of follow-up work extracted from a meeting transcript.
type ActionItem struct {
	UID         string `json:"uid"`
	MeetingUID  string `json:"meeting_uid"`
	Description string `json:"description"`
	// AssigneeUID is the resolved user; nil means unassigned.
	AssigneeUID *string `json:"assignee_uid,omitempty"`
	// AssigneeText is the free text the model produced for the assignee.
	AssigneeText string           `json:"assignee_text,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Priority     string           `json:"priority,omitempty"`
	Status       ActionItemStatus `json:"status"`
	Notified     bool             `json:"notified"`
	// NotificationMessageRef is the chat delivery receipt (e.g. message timestamp).
	NotificationMessageRef string    `json:"notification_message_ref,omitempty"`
	CalendarEventRef       string    `json:"calendar_event_ref,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// IsAssigned reports whether the item has a resolved assignee.
func (a *ActionItem) IsAssigned() bool {
	return a != nil && a.AssigneeUID != nil && *a.AssigneeUID != ""
}

// MarkNotified records a successful chat delivery. It is idempotent: once an
// item is notified the first receipt is kept.
func (a *ActionItem) MarkNotified(messageRef string, at time.Time) {
	if a.Notified {
		return
	}
	a.Notified = true
	a.NotificationMessageRef = messageRef
	a.UpdatedAt = at
}

// ActionItemList is the complete set of action items for one meeting. The set
// is stored as a single document so replacing it is one atomic write.
type ActionItemList struct {
	MeetingUID string        `json:"meeting_uid"`
	Items      []*ActionItem `json:"items"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Find returns the item with the given UID, or nil.
func (l *ActionItemList) Find(itemUID string) *ActionItem {
	if l == nil {
		return nil
	}
	for _, item := range l.Items {
		if item.UID == itemUID {
			return item
		}
	}
	return nil
}

// RawActionItem is one action item as produced by the LLM, before validation.
type RawActionItem struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Priority    string `json:"priority,omitempty"`
}
