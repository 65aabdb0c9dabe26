// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

func newEnqueueCommand(run wrapFunc) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "enqueue <meeting-uid>",
		Short: "Queue a pipeline job for a meeting",
		Long: `Queue a pipeline job for a meeting.

The job advances the meeting from its current status. Meetings that are already
completed or failed are left unchanged by the pipeline.`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, b *backend, out io.Writer, args []string) error {
			meetingUID := args[0]
			if _, err := uuid.Parse(meetingUID); err != nil {
				return fmt.Errorf("invalid meeting UID %q: %w", meetingUID, err)
			}

			meeting, err := b.Meetings.GetMeeting(ctx, meetingUID)
			if err != nil {
				return fmt.Errorf("fetching meeting: %w", err)
			}
			if meeting.Status.IsTerminal() {
				fmt.Fprintf(out, "Meeting %s is %s; the job will not change it.\n", meeting.UID, meeting.Status)
			}

			if err := b.JobQueue.Enqueue(ctx, meeting.UID, reason); err != nil {
				return fmt.Errorf("enqueueing job: %w", err)
			}
			fmt.Fprintf(out, "Queued pipeline job for meeting %s.\n", meeting.UID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&reason, "reason", "manual enqueue", "Reason recorded on the job")
	return cmd
}

func newStatusCommand(opts *rootOptions, run wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status <meeting-uid>",
		Short: "Show a meeting's pipeline status and action items",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, b *backend, out io.Writer, args []string) error {
			meeting, err := b.Meetings.GetMeeting(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetching meeting: %w", err)
			}

			list, _, err := b.ActionItems.GetActionItems(ctx, meeting.UID)
			if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
				return fmt.Errorf("fetching action items: %w", err)
			}

			view := newMeetingView(meeting, list)
			return render(out, opts.output, view, func(w io.Writer) {
				printMeeting(w, view)
			})
		}),
	}
}

func newListCommand(opts *rootOptions, run wrapFunc) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings, optionally filtered by pipeline status",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, b *backend, out io.Writer, _ []string) error {
			if statusFilter != "" && !models.MeetingStatus(statusFilter).IsValid() {
				return fmt.Errorf("unknown status %q", statusFilter)
			}

			meetings, err := b.Meetings.ListMeetings(ctx)
			if err != nil {
				return fmt.Errorf("listing meetings: %w", err)
			}

			views := make([]meetingView, 0, len(meetings))
			for _, meeting := range meetings {
				if statusFilter != "" && string(meeting.Status) != statusFilter {
					continue
				}
				views = append(views, newMeetingView(meeting, nil))
			}
			sort.Slice(views, func(i, j int) bool {
				return views[i].CreatedAt.Before(views[j].CreatedAt)
			})

			return render(out, opts.output, views, func(w io.Writer) {
				printMeetingTable(w, views)
			})
		}),
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, transcribing, extracting, notifying, completed, failed)")
	return cmd
}

func newLogsCommand(opts *rootOptions, run wrapFunc) *cobra.Command {
	var integration string

	cmd := &cobra.Command{
		Use:   "logs <meeting-uid>",
		Short: "Show the integration log of a meeting and its action items",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, b *backend, out io.Writer, args []string) error {
			meetingUID := args[0]
			if _, err := b.Meetings.GetMeeting(ctx, meetingUID); err != nil {
				return fmt.Errorf("fetching meeting: %w", err)
			}

			entries, err := b.IntegrationLog.ListEntries(ctx, models.EntityTypeMeeting, meetingUID)
			if err != nil {
				return fmt.Errorf("listing meeting log entries: %w", err)
			}

			list, _, err := b.ActionItems.GetActionItems(ctx, meetingUID)
			if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
				return fmt.Errorf("fetching action items: %w", err)
			}
			if list != nil {
				for _, item := range list.Items {
					itemEntries, err := b.IntegrationLog.ListEntries(ctx, models.EntityTypeActionItem, item.UID)
					if err != nil {
						return fmt.Errorf("listing log entries of action item %s: %w", item.UID, err)
					}
					entries = append(entries, itemEntries...)
				}
			}

			views := make([]logEntryView, 0, len(entries))
			for _, entry := range entries {
				if integration != "" && string(entry.IntegrationType) != integration {
					continue
				}
				views = append(views, newLogEntryView(entry))
			}
			sort.SliceStable(views, func(i, j int) bool {
				return views[i].CreatedAt.Before(views[j].CreatedAt)
			})

			return render(out, opts.output, views, func(w io.Writer) {
				printLogTable(w, views)
			})
		}),
	}

	cmd.Flags().StringVar(&integration, "integration", "", "Filter by integration (transcription, extraction, chat, calendar)")
	return cmd
}
