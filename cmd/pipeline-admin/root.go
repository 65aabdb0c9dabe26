// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/store"
)

// meetingStore is the meeting repository plus listing.
type meetingStore interface {
	domain.MeetingRepository
	ListMeetings(ctx context.Context) ([]*models.Meeting, error)
}

// backend is what the admin commands read from and write to.
type backend struct {
	Meetings       meetingStore
	ActionItems    domain.ActionItemRepository
	IntegrationLog domain.IntegrationLogRepository
	JobQueue       domain.JobQueue
	Close          func()
}

// connectFunc opens a backend for the given NATS URL.
type connectFunc func(ctx context.Context, natsURL string) (*backend, error)

// commandFunc is the body of a command once the backend is connected.
type commandFunc func(ctx context.Context, b *backend, out io.Writer, args []string) error

// wrapFunc turns a commandFunc into a cobra RunE.
type wrapFunc func(fn commandFunc) func(*cobra.Command, []string) error

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	natsURL string
	output  string
	timeout time.Duration
}

func newRootCommand(connect connectFunc) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pipeline-admin",
		Short: "Inspect and drive the meeting action item pipeline",
		Long: `pipeline-admin is the operator tool of the meeting pipeline.

It reads meetings, action items and the integration log from the pipeline's
NATS key-value buckets, and can queue a meeting for another pipeline run.`,
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("NATS_URL")
	if defaultURL == "" {
		defaultURL = "nats://localhost:4222"
	}
	cmd.PersistentFlags().StringVar(&opts.natsURL, "nats-url", defaultURL, "NATS server URL")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format (text, json, yaml)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for the whole command")

	run := func(fn commandFunc) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			if !isOutputFormat(opts.output) {
				return fmt.Errorf("unknown output format %q", opts.output)
			}
			ctx, cancel := context.WithTimeout(c.Context(), opts.timeout)
			defer cancel()

			b, err := connect(ctx, opts.natsURL)
			if err != nil {
				return err
			}
			if b.Close != nil {
				defer b.Close()
			}
			return fn(ctx, b, c.OutOrStdout(), args)
		}
	}

	cmd.AddCommand(
		newEnqueueCommand(run),
		newStatusCommand(opts, run),
		newListCommand(opts, run),
		newLogsCommand(opts, run),
	)
	return cmd
}

// connectNATS binds the backend to the pipeline's buckets and job stream.
func connectNATS(ctx context.Context, natsURL string) (*backend, error) {
	natsConn, err := nats.Connect(natsURL, nats.Name("pipeline-admin"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	buckets := make(map[string]jetstream.KeyValue)
	for _, bucket := range []string{store.KVStoreNameMeetings, store.KVStoreNameActionItems, store.KVStoreNameIntegrationLogs} {
		kv, err := js.KeyValue(ctx, bucket)
		if err != nil {
			natsConn.Close()
			return nil, fmt.Errorf("get key-value store %q: %w", bucket, err)
		}
		buckets[bucket] = kv
	}

	return &backend{
		Meetings:       store.NewNatsMeetingRepository(buckets[store.KVStoreNameMeetings]),
		ActionItems:    store.NewNatsActionItemRepository(buckets[store.KVStoreNameActionItems]),
		IntegrationLog: store.NewNatsIntegrationLogRepository(buckets[store.KVStoreNameIntegrationLogs]),
		JobQueue:       messaging.NewNatsJobQueue(js, nil),
		Close:          natsConn.Close,
	}, nil
}
