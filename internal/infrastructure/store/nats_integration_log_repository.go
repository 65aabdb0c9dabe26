// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// NatsIntegrationLogRepository is an append-only integration log on NATS KV.
// Entries are only ever written with Create, so concurrent writers never
// overwrite each other and no entry is mutated after the fact.
type NatsIntegrationLogRepository struct {
	*NatsBaseRepository[models.IntegrationLogEntry]
	keys *KeyBuilder
}

// NewNatsIntegrationLogRepository creates a new integration log repository
func NewNatsIntegrationLogRepository(kvStore INatsKeyValue) *NatsIntegrationLogRepository {
	return &NatsIntegrationLogRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.IntegrationLogEntry](kvStore, "integration log entry"),
		keys:               NewKeyBuilder(""),
	}
}

// AppendEntry appends a new entry to the log
func (r *NatsIntegrationLogRepository) AppendEntry(ctx context.Context, entry *models.IntegrationLogEntry) error {
	key, err := r.keys.IntegrationLogKey(entry)
	if err != nil {
		return domain.NewValidationError("invalid integration log entry key", err)
	}
	return r.Create(ctx, key, entry)
}

// ListEntries returns every entry for an entity, oldest first
func (r *NatsIntegrationLogRepository) ListEntries(ctx context.Context, entityType models.EntityType, entityUID string) ([]*models.IntegrationLogEntry, error) {
	return r.list(ctx, r.keys.IntegrationLogFilter(entityType, entityUID, ""))
}

// ListEntriesForIntegration returns the entries for one integration of an entity, oldest first
func (r *NatsIntegrationLogRepository) ListEntriesForIntegration(ctx context.Context, entityType models.EntityType, entityUID string, integration models.IntegrationType) ([]*models.IntegrationLogEntry, error) {
	return r.list(ctx, r.keys.IntegrationLogFilter(entityType, entityUID, integration))
}

func (r *NatsIntegrationLogRepository) list(ctx context.Context, filter string) ([]*models.IntegrationLogEntry, error) {
	entries, err := r.ListEntities(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Attempt < entries[j].Attempt
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}
