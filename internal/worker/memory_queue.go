// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// ErrAlreadySettled is returned when a delivery is acked, retried or
// terminated a second time.
var ErrAlreadySettled = errors.New("job delivery already settled")

// MemoryQueueStats counts what happened to the jobs of a MemoryQueue.
type MemoryQueueStats struct {
	Enqueued   int
	Acked      int
	Retried    int
	Terminated int
}

// Settled is the number of jobs that will not be delivered again.
func (s MemoryQueueStats) Settled() int {
	return s.Acked + s.Terminated
}

// MemoryQueue is an in-process JobQueue and JobSource for local runs and
// tests. Retries are redelivered after their delay with the attempt
// incremented. Jobs do not survive a restart.
type MemoryQueue struct {
	pending chan *memoryDelivery
	now     func() time.Time

	mu     sync.Mutex
	stats  MemoryQueueStats
	closed bool
	timers []*time.Timer
}

// NewMemoryQueue creates a queue holding at most capacity undelivered jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		pending: make(chan *memoryDelivery, capacity),
		now:     time.Now,
	}
}

// Enqueue adds a job for the meeting.
func (q *MemoryQueue) Enqueue(ctx context.Context, meetingUID string, reason string) error {
	if meetingUID == "" {
		return domain.NewValidationError("meeting UID is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.NewUnavailableError("job queue is closed")
	}
	q.mu.Unlock()

	delivery := &memoryDelivery{
		queue:   q,
		attempt: 1,
		job: models.PipelineJob{
			MeetingUID: meetingUID,
			Reason:     reason,
			EnqueuedAt: q.now().UTC(),
		},
	}

	select {
	case q.pending <- delivery:
		q.mu.Lock()
		q.stats.Enqueued++
		q.mu.Unlock()
		return nil
	case <-ctx.Done():
		return domain.NewUnavailableError("job queue is full", ctx.Err())
	}
}

// Consume returns the delivery channel. It is closed once ctx is done.
func (q *MemoryQueue) Consume(ctx context.Context) (<-chan domain.JobDelivery, error) {
	out := make(chan domain.JobDelivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case delivery := <-q.pending:
				select {
				case out <- delivery:
				case <-ctx.Done():
					q.requeue(delivery)
					return
				}
			}
		}
	}()
	return out, nil
}

// Stats returns a snapshot of the job counters.
func (q *MemoryQueue) Stats() MemoryQueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close stops accepting jobs and cancels pending redeliveries.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, timer := range q.timers {
		timer.Stop()
	}
	q.timers = nil
}

func (q *MemoryQueue) requeue(delivery *memoryDelivery) {
	select {
	case q.pending <- delivery:
	default:
		// Full; the job is lost like any unacked in-memory job.
	}
}

func (q *MemoryQueue) redeliver(previous *memoryDelivery, delay time.Duration) {
	next := &memoryDelivery{queue: q, job: previous.job, attempt: previous.attempt + 1}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Retried++
	if q.closed {
		return
	}
	q.timers = append(q.timers, time.AfterFunc(delay, func() { q.requeue(next) }))
}

func (q *MemoryQueue) settle(acked bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if acked {
		q.stats.Acked++
	} else {
		q.stats.Terminated++
	}
}

type memoryDelivery struct {
	queue   *MemoryQueue
	job     models.PipelineJob
	attempt int

	mu      sync.Mutex
	settled bool
}

func (d *memoryDelivery) Job() models.PipelineJob { return d.job }

func (d *memoryDelivery) Attempt() int { return d.attempt }

func (d *memoryDelivery) markSettled() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return ErrAlreadySettled
	}
	d.settled = true
	return nil
}

func (d *memoryDelivery) Ack() error {
	if err := d.markSettled(); err != nil {
		return err
	}
	d.queue.settle(true)
	return nil
}

func (d *memoryDelivery) Retry(delay time.Duration) error {
	if err := d.markSettled(); err != nil {
		return err
	}
	d.queue.redeliver(d, delay)
	return nil
}

func (d *memoryDelivery) Term() error {
	if err := d.markSettled(); err != nil {
		return err
	}
	d.queue.settle(false)
	return nil
}
