// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// Stage is the work owned by one non-terminal pipeline status. A stage writes
// its own output entities but never the meeting status.
type Stage interface {
	Service
	// Status is the meeting status during which the stage runs.
	Status() models.MeetingStatus
	Run(ctx context.Context, meeting *models.Meeting) error
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// ExternalCallTimeout bounds every call to an external collaborator.
	ExternalCallTimeout time.Duration
	// NotificationConcurrency bounds the per-item fan-out of the notification stage.
	NotificationConcurrency int
	// LFXEnvironment is the environment name for LFX app domain generation.
	LFXEnvironment string
	// LFXAppOrigin overrides the LFX app origin used in notification links.
	LFXAppOrigin string
}

// DefaultServiceConfig returns the configuration used when none is given.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ExternalCallTimeout:     constants.DefaultExternalCallTimeout,
		NotificationConcurrency: constants.DefaultNotificationConcurrency,
	}
}

func (c ServiceConfig) callTimeout() time.Duration {
	if c.ExternalCallTimeout <= 0 {
		return constants.DefaultExternalCallTimeout
	}
	return c.ExternalCallTimeout
}

func (c ServiceConfig) notificationConcurrency() int {
	if c.NotificationConcurrency <= 0 {
		return constants.DefaultNotificationConcurrency
	}
	return c.NotificationConcurrency
}

type attemptContextKey struct{}

// ContextWithAttempt records the job delivery attempt so that integration
// log entries written during the run carry it.
func ContextWithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptContextKey{}, attempt)
}

// AttemptFromContext returns the delivery attempt, or 1 when none is set.
func AttemptFromContext(ctx context.Context) int {
	if attempt, ok := ctx.Value(attemptContextKey{}).(int); ok && attempt > 0 {
		return attempt
	}
	return 1
}
