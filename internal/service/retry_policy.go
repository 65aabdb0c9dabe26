// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// RetryAction is what to do with a job delivery after a run.
type RetryAction int

const (
	// RetryActionDone means the run succeeded; acknowledge the job.
	RetryActionDone RetryAction = iota
	// RetryActionRetry means redeliver the job after the backoff.
	RetryActionRetry
	// RetryActionExhausted means the attempt ceiling was reached; fail the meeting.
	RetryActionExhausted
	// RetryActionDiscard means the error will not go away; drop the job.
	RetryActionDiscard
)

func (a RetryAction) String() string {
	switch a {
	case RetryActionDone:
		return "done"
	case RetryActionRetry:
		return "retry"
	case RetryActionExhausted:
		return "exhausted"
	default:
		return "discard"
	}
}

// RetryDecision represents the decision about whether to retry.
type RetryDecision struct {
	Action  RetryAction
	Backoff time.Duration
	Reason  string
}

// RetryPolicy is the single retry discipline applied to every stage: the
// number of job attempts, the backoff between them and which errors qualify.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the fraction (0-1) by which a backoff may vary either way.
	Jitter float64
	// Retryable classifies errors; defaults to domain.IsRetryable.
	Retryable func(error) bool

	random func() float64
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    constants.DefaultPipelineMaxAttempts,
		InitialBackoff: constants.DefaultPipelineInitialBackoff,
		MaxBackoff:     constants.DefaultPipelineMaxBackoff,
		Multiplier:     2.0,
		Jitter:         0.25,
		Retryable:      domain.IsRetryable,
	}
}

func (p RetryPolicy) isRetryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return domain.IsRetryable(err)
}

// Backoff returns the delay before the attempt that follows the given one.
// Attempts are 1-based.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := float64(p.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	if p.Jitter > 0 {
		random := p.random
		if random == nil {
			random = rand.Float64
		}
		backoff += backoff * p.Jitter * (random()*2 - 1)
	}

	delay := time.Duration(backoff)
	if delay < p.InitialBackoff {
		delay = p.InitialBackoff
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	return delay
}

// Decide makes a retry decision for the outcome of the given attempt.
func (p RetryPolicy) Decide(err error, attempt int) RetryDecision {
	switch {
	case err == nil:
		return RetryDecision{Action: RetryActionDone, Reason: "completed"}
	case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
		return RetryDecision{Action: RetryActionDiscard, Reason: "entity not found"}
	case !p.isRetryable(err):
		return RetryDecision{Action: RetryActionDiscard, Reason: "permanent error: " + domain.GetErrorType(err).String()}
	case attempt >= p.MaxAttempts:
		return RetryDecision{Action: RetryActionExhausted, Reason: fmt.Sprintf("gave up after %d attempts: %v", attempt, err)}
	default:
		return RetryDecision{Action: RetryActionRetry, Backoff: p.Backoff(attempt), Reason: "retryable error"}
	}
}
