// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// NatsUserRepository implements UserDirectory and CredentialStore on two NATS
// KV buckets: user profiles and user integration credentials.
type NatsUserRepository struct {
	users        *NatsBaseRepository[models.User]
	integrations *NatsBaseRepository[models.UserIntegrations]
}

// NewNatsUserRepository creates a new user repository
func NewNatsUserRepository(users INatsKeyValue, integrations INatsKeyValue) *NatsUserRepository {
	return &NatsUserRepository{
		users:        NewNatsBaseRepository[models.User](users, "user"),
		integrations: NewNatsBaseRepository[models.UserIntegrations](integrations, "user integrations"),
	}
}

// IsReady checks if both buckets are available
func (r *NatsUserRepository) IsReady() bool {
	return r.users.IsReady() && r.integrations.IsReady()
}

// ListUsers returns every user ordered by UID
func (r *NatsUserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := r.users.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	return users, nil
}

// GetUser retrieves a user by UID
func (r *NatsUserRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	return r.users.Get(ctx, userUID)
}

// PutUser creates or replaces a user profile
func (r *NatsUserRepository) PutUser(ctx context.Context, user *models.User) error {
	_, err := r.users.Put(ctx, user.UID, user)
	return err
}

// PutUserIntegrations creates or replaces a user's integration credentials
func (r *NatsUserRepository) PutUserIntegrations(ctx context.Context, integrations *models.UserIntegrations) error {
	_, err := r.integrations.Put(ctx, integrations.UserUID, integrations)
	return err
}

func (r *NatsUserRepository) getIntegrations(ctx context.Context, userUID string) (*models.UserIntegrations, error) {
	integrations, err := r.integrations.Get(ctx, userUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewAuthError(fmt.Sprintf("user %s has no integrations", userUID), domain.ErrMissingCredential)
		}
		return nil, err
	}
	return integrations, nil
}

// ChatCredential returns the chat token and recipient of a user
func (r *NatsUserRepository) ChatCredential(ctx context.Context, userUID string) (*models.ChatCredential, error) {
	integrations, err := r.getIntegrations(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if integrations.ChatToken == "" {
		return nil, domain.NewAuthError(fmt.Sprintf("user %s has no chat integration", userUID), domain.ErrMissingCredential)
	}

	user, err := r.users.Get(ctx, userUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewAuthError(fmt.Sprintf("user %s not found", userUID), domain.ErrMissingCredential)
		}
		return nil, err
	}
	if user.ChatUserID == "" {
		return nil, domain.NewAuthError(fmt.Sprintf("user %s has no chat user ID", userUID), domain.ErrMissingCredential)
	}

	return &models.ChatCredential{Token: integrations.ChatToken, Recipient: user.ChatUserID}, nil
}

// CalendarCredential returns the calendar refresh token of a user
func (r *NatsUserRepository) CalendarCredential(ctx context.Context, userUID string) (*models.CalendarCredential, error) {
	integrations, err := r.getIntegrations(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if integrations.CalendarRefreshToken == "" {
		return nil, domain.NewAuthError(fmt.Sprintf("user %s has no calendar integration", userUID), domain.ErrMissingCredential)
	}
	return &models.CalendarCredential{RefreshToken: integrations.CalendarRefreshToken}, nil
}
