// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/utils"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func isOutputFormat(format string) bool {
	switch format {
	case outputText, outputJSON, outputYAML:
		return true
	}
	return false
}

// render writes v in the requested format; text output is delegated to printText.
func render(out io.Writer, format string, v any, printText func(io.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		printText(out)
		return nil
	}
}

type meetingView struct {
	UID           string           `json:"uid" yaml:"uid"`
	Title         string           `json:"title" yaml:"title"`
	Status        string           `json:"status" yaml:"status"`
	UploadStatus  string           `json:"upload_status,omitempty" yaml:"upload_status,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Summary       string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	ActionItems   []actionItemView `json:"action_items,omitempty" yaml:"action_items,omitempty"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" yaml:"updated_at"`
}

type actionItemView struct {
	UID              string `json:"uid" yaml:"uid"`
	Description      string `json:"description" yaml:"description"`
	AssigneeUID      string `json:"assignee_uid,omitempty" yaml:"assignee_uid,omitempty"`
	AssigneeText     string `json:"assignee_text,omitempty" yaml:"assignee_text,omitempty"`
	DueDate          string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Priority         string `json:"priority,omitempty" yaml:"priority,omitempty"`
	Notified         bool   `json:"notified" yaml:"notified"`
	CalendarEventRef string `json:"calendar_event_ref,omitempty" yaml:"calendar_event_ref,omitempty"`
}

type logEntryView struct {
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
	EntityType  string         `json:"entity_type" yaml:"entity_type"`
	EntityUID   string         `json:"entity_uid" yaml:"entity_uid"`
	Integration string         `json:"integration" yaml:"integration"`
	Outcome     string         `json:"outcome" yaml:"outcome"`
	ErrorType   string         `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Attempt     int            `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Details     map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

func newMeetingView(meeting *models.Meeting, list *models.ActionItemList) meetingView {
	view := meetingView{
		UID:           meeting.UID,
		Title:         meeting.Title,
		Status:        string(meeting.Status),
		UploadStatus:  string(meeting.UploadStatus),
		FailureReason: meeting.FailureReason,
		Summary:       utils.StringValue(meeting.Summary),
		CreatedAt:     meeting.CreatedAt,
		UpdatedAt:     meeting.UpdatedAt,
	}
	if list == nil {
		return view
	}
	for _, item := range list.Items {
		itemView := actionItemView{
			UID:              item.UID,
			Description:      item.Description,
			AssigneeText:     item.AssigneeText,
			DueDate:          utils.FormatTimePtr(item.DueDate, time.DateOnly),
			Priority:         item.Priority,
			Notified:         item.Notified,
			CalendarEventRef: item.CalendarEventRef,
		}
		if item.IsAssigned() {
			itemView.AssigneeUID = *item.AssigneeUID
		}
		view.ActionItems = append(view.ActionItems, itemView)
	}
	return view
}

func newLogEntryView(entry *models.IntegrationLogEntry) logEntryView {
	return logEntryView{
		CreatedAt:   entry.CreatedAt,
		EntityType:  string(entry.EntityType),
		EntityUID:   entry.EntityUID,
		Integration: string(entry.IntegrationType),
		Outcome:     string(entry.Outcome),
		ErrorType:   entry.ErrorType,
		Attempt:     entry.Attempt,
		Details:     entry.Details,
	}
}

func printMeeting(w io.Writer, view meetingView) {
	fmt.Fprintf(w, "Meeting:  %s\n", view.UID)
	fmt.Fprintf(w, "Title:    %s\n", view.Title)
	fmt.Fprintf(w, "Status:   %s\n", view.Status)
	if view.FailureReason != "" {
		fmt.Fprintf(w, "Failure:  %s\n", view.FailureReason)
	}
	if view.Summary != "" {
		fmt.Fprintf(w, "Summary:  %s\n", view.Summary)
	}
	fmt.Fprintf(w, "\n== ACTION ITEMS (%d) ==\n", len(view.ActionItems))
	for _, item := range view.ActionItems {
		assignee := utils.CoalesceString(item.AssigneeUID, item.AssigneeText, "(unassigned)")
		notified := "no"
		if item.Notified {
			notified = "yes"
		}
		fmt.Fprintf(w, "  %-36s %-8s %-10s %-36s %s\n", item.UID, notified, item.DueDate, assignee, item.Description)
	}
}

func printMeetingTable(w io.Writer, views []meetingView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No meetings found.")
		return
	}
	fmt.Fprintf(w, "%-36s %-12s %-20s %s\n", "UID", "STATUS", "CREATED", "TITLE")
	for _, view := range views {
		fmt.Fprintf(w, "%-36s %-12s %-20s %s\n", view.UID, view.Status, view.CreatedAt.UTC().Format(time.DateTime), view.Title)
	}
}

func printLogTable(w io.Writer, views []logEntryView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No integration log entries found.")
		return
	}
	fmt.Fprintf(w, "%-20s %-13s %-8s %-10s %-7s %s\n", "TIME", "INTEGRATION", "OUTCOME", "ERROR", "ATTEMPT", "ENTITY")
	for _, view := range views {
		fmt.Fprintf(w, "%-20s %-13s %-8s %-10s %-7d %s:%s\n",
			view.CreatedAt.UTC().Format(time.DateTime),
			view.Integration,
			view.Outcome,
			view.ErrorType,
			view.Attempt,
			view.EntityType,
			view.EntityUID,
		)
	}
}
