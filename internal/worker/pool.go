// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package worker runs pipeline jobs on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/observability"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// Runner advances a meeting through the pipeline.
type Runner interface {
	Run(ctx context.Context, meetingUID string) error
	Fail(ctx context.Context, meetingUID string, cause error) error
}

// Pool pulls job deliveries from a source and runs them on a fixed number
// of workers. Each delivery is settled exactly once according to the retry
// policy.
type Pool struct {
	source  domain.JobSource
	runner  Runner
	policy  service.RetryPolicy
	workers int
	metrics *observability.PipelineMetrics

	mu            sync.Mutex
	started       bool
	stopConsuming context.CancelFunc
	cancelJobs    context.CancelFunc
	stopping      chan struct{}
	wg            sync.WaitGroup
}

// NewPool creates a new worker pool. A non-positive worker count uses the default.
func NewPool(
	source domain.JobSource,
	runner Runner,
	policy service.RetryPolicy,
	workers int,
	metrics *observability.PipelineMetrics,
) *Pool {
	if workers <= 0 {
		workers = constants.DefaultPipelineWorkers
	}
	return &Pool{
		source:   source,
		runner:   runner,
		policy:   policy,
		workers:  workers,
		metrics:  metrics,
		stopping: make(chan struct{}),
	}
}

// Start begins consuming deliveries. Jobs run under a context that is not
// cancelled with ctx, so that Shutdown can let in-flight jobs finish.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("worker pool already started")
	}

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	deliveries, err := p.source.Consume(consumeCtx)
	if err != nil {
		stopConsuming()
		return fmt.Errorf("failed to start consuming pipeline jobs: %w", err)
	}

	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	p.stopConsuming = stopConsuming
	p.cancelJobs = cancelJobs
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(logging.AppendCtx(jobCtx, slog.Int("worker", i)), deliveries)
	}

	slog.InfoContext(ctx, "worker pool started", "workers", p.workers)
	return nil
}

// Shutdown stops taking new deliveries and waits for in-flight jobs. When
// ctx ends first, the remaining jobs are cancelled and ctx's error returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	select {
	case <-p.stopping:
	default:
		close(p.stopping)
		p.stopConsuming()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelJobs()
		slog.InfoContext(ctx, "worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancelJobs()
		slog.WarnContext(ctx, "worker pool shutdown timed out, cancelling in-flight jobs")
		<-done
		return ctx.Err()
	}
}

func (p *Pool) work(ctx context.Context, deliveries <-chan domain.JobDelivery) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopping:
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			p.handle(ctx, delivery)
		}
	}
}

func (p *Pool) handle(ctx context.Context, delivery domain.JobDelivery) {
	job := delivery.Job()
	attempt := delivery.Attempt()
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", job.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.Int("attempt", attempt))

	defer p.metrics.JobStarted()()

	// A delivery past the ceiling was already given every attempt, e.g. by
	// a worker that crashed before settling it.
	if p.policy.MaxAttempts > 0 && attempt > p.policy.MaxAttempts {
		p.exhaust(ctx, delivery, domain.NewTransientError(fmt.Sprintf("delivered %d times", attempt)))
		return
	}

	err := p.runner.Run(service.ContextWithAttempt(ctx, attempt), job.MeetingUID)
	decision := p.policy.Decide(err, attempt)

	switch decision.Action {
	case service.RetryActionDone:
		p.settle(ctx, delivery.Ack(), observability.JobAcked)
		slog.DebugContext(ctx, "pipeline job completed")

	case service.RetryActionRetry:
		slog.WarnContext(ctx, "pipeline job failed, scheduling retry", logging.ErrKey, err, "backoff", decision.Backoff.String())
		p.settle(ctx, delivery.Retry(decision.Backoff), observability.JobRetried)

	case service.RetryActionExhausted:
		p.exhaust(ctx, delivery, err)

	case service.RetryActionDiscard:
		outcome := observability.JobTerminated
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			outcome = observability.JobDiscarded
		}
		slog.WarnContext(ctx, "pipeline job dropped", logging.ErrKey, err, "reason", decision.Reason)
		p.settle(ctx, delivery.Term(), outcome)
	}
}

// exhaust fails the meeting and drops the delivery.
func (p *Pool) exhaust(ctx context.Context, delivery domain.JobDelivery, cause error) {
	job := delivery.Job()
	slog.ErrorContext(ctx, "pipeline job retries exhausted", logging.ErrKey, cause)

	if err := p.runner.Fail(ctx, job.MeetingUID, fmt.Errorf("retries exhausted: %w", cause)); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			p.settle(ctx, delivery.Term(), observability.JobDiscarded)
			return
		}
		// Leave the job for redelivery so the failure is written eventually.
		slog.ErrorContext(ctx, "failed to mark meeting as failed", logging.ErrKey, err, logging.PriorityCritical())
		p.settle(ctx, delivery.Retry(p.policy.MaxBackoff), observability.JobRetried)
		return
	}
	p.settle(ctx, delivery.Term(), observability.JobExhausted)
}

func (p *Pool) settle(ctx context.Context, err error, outcome string) {
	p.metrics.RecordJob(outcome)
	if err != nil {
		slog.ErrorContext(ctx, "failed to settle pipeline job", logging.ErrKey, err, "outcome", outcome)
	}
}
