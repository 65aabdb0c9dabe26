// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

// INatsJetStream is the subset of [jetstream.JetStream] the job queue publishes with.
type INatsJetStream interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// IJobConsumer is the subset of [jetstream.Consumer] the job queue consumes with.
type IJobConsumer interface {
	Consume(handler jetstream.MessageHandler, opts ...jetstream.PullConsumeOpt) (jetstream.ConsumeContext, error)
}

// NatsJobQueue is a durable at-least-once job queue on a JetStream work-queue stream.
type NatsJobQueue struct {
	js       INatsJetStream
	consumer IJobConsumer
	now      func() time.Time
}

// NewNatsJobQueue creates a job queue. consumer may be nil for publish-only use.
func NewNatsJobQueue(js INatsJetStream, consumer IJobConsumer) *NatsJobQueue {
	return &NatsJobQueue{
		js:       js,
		consumer: consumer,
		now:      time.Now,
	}
}

var (
	_ domain.JobQueue  = (*NatsJobQueue)(nil)
	_ domain.JobSource = (*NatsJobQueue)(nil)
)

// EnsureJobStream creates or updates the job stream and its durable consumer.
func EnsureJobStream(ctx context.Context, js jetstream.JetStream, ackWait time.Duration) (jetstream.Consumer, error) {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      models.PipelineJobsStream,
		Subjects:  []string{models.PipelineJobsSubject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create job stream: %w", err)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, models.PipelineJobsStream, jetstream.ConsumerConfig{
		Durable:       models.PipelineJobsConsumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		FilterSubject: models.PipelineJobsSubject,
	})
	if err != nil {
		return nil, fmt.Errorf("create job consumer: %w", err)
	}

	return consumer, nil
}

// Enqueue publishes a job for the meeting.
func (q *NatsJobQueue) Enqueue(ctx context.Context, meetingUID string, reason string) error {
	if strings.TrimSpace(meetingUID) == "" {
		return domain.NewValidationError("meeting UID is required")
	}

	job := models.PipelineJob{
		MeetingUID: meetingUID,
		Reason:     reason,
		EnqueuedAt: q.now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling pipeline job", logging.ErrKey, err)
		return domain.NewInternalError("failed to marshal pipeline job", err)
	}

	ack, err := q.js.Publish(ctx, models.PipelineJobsSubject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error publishing pipeline job", logging.ErrKey, err, "meeting_uid", meetingUID)
		return domain.NewUnavailableError("failed to publish pipeline job", err)
	}

	slog.DebugContext(ctx, "enqueued pipeline job",
		"meeting_uid", meetingUID,
		"reason", reason,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
	)
	return nil
}

// Consume starts pulling from the durable consumer. Each message is handed to
// the returned channel; the channel closes once ctx is done.
func (q *NatsJobQueue) Consume(ctx context.Context) (<-chan domain.JobDelivery, error) {
	if q.consumer == nil {
		return nil, domain.NewInternalError("job queue has no consumer")
	}

	out := make(chan domain.JobDelivery)
	// closed guards out against sends from handlers still running after Stop.
	var mu sync.RWMutex
	closed := false

	consumeCtx, err := q.consumer.Consume(func(msg jetstream.Msg) {
		delivery, err := newNatsDelivery(msg)
		if err != nil {
			slog.ErrorContext(ctx, "dropping malformed pipeline job", logging.ErrKey, err, "subject", msg.Subject())
			if termErr := msg.Term(); termErr != nil {
				slog.WarnContext(ctx, "failed to terminate malformed job", logging.ErrKey, termErr)
			}
			return
		}

		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case out <- delivery:
		case <-ctx.Done():
			// Left unacknowledged; the server redelivers after AckWait.
		}
	})
	if err != nil {
		close(out)
		return nil, domain.NewUnavailableError("failed to start job consumer", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out, nil
}

// jobMsg is the part of [jetstream.Msg] a delivery needs.
type jobMsg interface {
	Data() []byte
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

type natsDelivery struct {
	msg     jobMsg
	job     models.PipelineJob
	attempt int
}

func newNatsDelivery(msg jobMsg) (*natsDelivery, error) {
	var job models.PipelineJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		return nil, fmt.Errorf("decode pipeline job: %w", err)
	}
	if job.MeetingUID == "" {
		return nil, fmt.Errorf("pipeline job has no meeting UID")
	}

	attempt := 1
	if meta, err := msg.Metadata(); err == nil && meta != nil && meta.NumDelivered > 0 {
		attempt = int(meta.NumDelivered)
	}

	return &natsDelivery{msg: msg, job: job, attempt: attempt}, nil
}

func (d *natsDelivery) Job() models.PipelineJob { return d.job }

func (d *natsDelivery) Attempt() int { return d.attempt }

func (d *natsDelivery) Ack() error { return d.msg.Ack() }

func (d *natsDelivery) Retry(delay time.Duration) error { return d.msg.NakWithDelay(delay) }

func (d *natsDelivery) Term() error { return d.msg.Term() }
