// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// User is a known person that action items can be assigned to.
type User struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ChatUserID string `json:"chat_user_id,omitempty"`
}

// UserIntegrations holds the per-user credentials for the chat and calendar
// collaborators. Kept apart from User so that user listings never carry tokens.
type UserIntegrations struct {
	UserUID              string `json:"user_uid"`
	ChatToken            string `json:"chat_token,omitempty"`
	CalendarRefreshToken string `json:"calendar_refresh_token,omitempty"`
}

// ChatCredential is what the chat collaborator needs to reach a user.
type ChatCredential struct {
	Token     string
	Recipient string
}

// CalendarCredential is what the calendar collaborator needs to write to a user's calendar.
type CalendarCredential struct {
	RefreshToken string
}
