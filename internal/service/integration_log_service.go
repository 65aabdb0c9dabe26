// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/observability"
)

// IntegrationLogService records every external call attempt and answers the
// idempotency questions the stages ask of that record.
type IntegrationLogService struct {
	repository domain.IntegrationLogRepository
	metrics    *observability.PipelineMetrics
	now        func() time.Time
}

// NewIntegrationLogService creates a new IntegrationLogService
func NewIntegrationLogService(repository domain.IntegrationLogRepository, metrics *observability.PipelineMetrics) *IntegrationLogService {
	return &IntegrationLogService{
		repository: repository,
		metrics:    metrics,
		now:        time.Now,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *IntegrationLogService) ServiceReady() bool {
	return s.repository != nil
}

// Record appends an entry for one call attempt. A nil callErr records a
// success. Write failures are logged and swallowed; the caller never sees them.
func (s *IntegrationLogService) Record(
	ctx context.Context,
	entityType models.EntityType,
	entityUID string,
	integration models.IntegrationType,
	callErr error,
	details map[string]any,
) *models.IntegrationLogEntry {
	entry := &models.IntegrationLogEntry{
		UID:             uuid.New().String(),
		EntityType:      entityType,
		EntityUID:       entityUID,
		IntegrationType: integration,
		Outcome:         models.OutcomeSuccess,
		Attempt:         AttemptFromContext(ctx),
		Details:         details,
		CreatedAt:       s.now().UTC(),
	}
	if callErr != nil {
		entry.Outcome = models.OutcomeError
		entry.ErrorType = domain.GetErrorType(callErr).String()
		if entry.Details == nil {
			entry.Details = make(map[string]any, 1)
		}
		entry.Details["error"] = callErr.Error()
	}

	s.metrics.RecordIntegrationCall(string(integration), string(entry.Outcome))

	if err := s.repository.AppendEntry(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to record integration log entry", logging.ErrKey, err,
			"entity_type", entityType,
			"entity_uid", entityUID,
			"integration", integration,
			"outcome", entry.Outcome,
			logging.PriorityCritical(),
		)
	}
	return entry
}

// List returns every entry for an entity, oldest first.
func (s *IntegrationLogService) List(ctx context.Context, entityType models.EntityType, entityUID string) ([]*models.IntegrationLogEntry, error) {
	return s.repository.ListEntries(ctx, entityType, entityUID)
}

// HasSuccess reports whether a successful attempt of the integration was
// logged for the entity. It returns the most recent such entry.
func (s *IntegrationLogService) HasSuccess(
	ctx context.Context,
	entityType models.EntityType,
	entityUID string,
	integration models.IntegrationType,
) (*models.IntegrationLogEntry, bool, error) {
	entries, err := s.repository.ListEntriesForIntegration(ctx, entityType, entityUID, integration)
	if err != nil {
		return nil, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Outcome == models.OutcomeSuccess {
			return entries[i], true, nil
		}
	}
	return nil, false, nil
}

// HasPermanentFailure reports whether an attempt of the integration was
// logged with an error that retrying will not fix.
func (s *IntegrationLogService) HasPermanentFailure(
	ctx context.Context,
	entityType models.EntityType,
	entityUID string,
	integration models.IntegrationType,
) (bool, error) {
	entries, err := s.repository.ListEntriesForIntegration(ctx, entityType, entityUID, integration)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Outcome != models.OutcomeError {
			continue
		}
		switch entry.ErrorType {
		case domain.ErrorTypeAuth.String(), domain.ErrorTypePermanent.String():
			return true, nil
		}
	}
	return false, nil
}
