// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// NatsActionItemRepository implements ActionItemRepository using NATS KV store.
// Each meeting's items live in one document keyed by meeting UID.
type NatsActionItemRepository struct {
	*NatsBaseRepository[models.ActionItemList]
}

// NewNatsActionItemRepository creates a new action item repository
func NewNatsActionItemRepository(kvStore INatsKeyValue) *NatsActionItemRepository {
	return &NatsActionItemRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ActionItemList](kvStore, "action items"),
	}
}

// GetActionItems retrieves the action item set of a meeting with its revision
func (r *NatsActionItemRepository) GetActionItems(ctx context.Context, meetingUID string) (*models.ActionItemList, uint64, error) {
	return r.GetWithRevision(ctx, meetingUID)
}

// ReplaceActionItems atomically replaces the action item set of a meeting
func (r *NatsActionItemRepository) ReplaceActionItems(ctx context.Context, list *models.ActionItemList) error {
	if list == nil || list.MeetingUID == "" {
		return domain.NewValidationError("action item list meeting UID is required")
	}
	_, err := r.Put(ctx, list.MeetingUID, list)
	return err
}

// UpdateActionItems updates the action item set with optimistic concurrency control
func (r *NatsActionItemRepository) UpdateActionItems(ctx context.Context, list *models.ActionItemList, revision uint64) error {
	return r.Update(ctx, list.MeetingUID, list, revision)
}
