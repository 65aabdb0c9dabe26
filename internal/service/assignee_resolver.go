// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"sort"
	"strings"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// AssigneeResolver matches free-text assignees to known users.
//
// Matching is case-insensitive. Candidates are tried in four tiers and the
// first tier with a match decides: exact email, exact name, name substring,
// email substring. Within a tier users are ordered by UID, so the same text
// always resolves to the same user.
type AssigneeResolver struct {
	users []*models.User
}

// NewAssigneeResolver creates a resolver over a snapshot of the user directory.
func NewAssigneeResolver(users []*models.User) *AssigneeResolver {
	sorted := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u != nil {
			sorted = append(sorted, u)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })
	return &AssigneeResolver{users: sorted}
}

// Resolve returns the matching user, or nil when the text matches nobody.
func (r *AssigneeResolver) Resolve(text string) *models.User {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}

	tiers := []func(name, email string) bool{
		func(_, email string) bool { return email != "" && email == needle },
		func(name, _ string) bool { return name != "" && name == needle },
		func(name, _ string) bool { return strings.Contains(name, needle) },
		func(_, email string) bool { return strings.Contains(email, needle) },
	}

	for _, matches := range tiers {
		for _, u := range r.users {
			if matches(strings.ToLower(u.Name), strings.ToLower(u.Email)) {
				return u
			}
		}
	}
	return nil
}
