// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// EntityType identifies what an integration log entry is about.
type EntityType string

// Entity types.
const (
	EntityTypeMeeting    EntityType = "meeting"
	EntityTypeActionItem EntityType = "action_item"
)

// IntegrationType identifies the external collaborator that was called.
type IntegrationType string

// Integration types.
const (
	IntegrationTranscription IntegrationType = "transcription"
	IntegrationExtraction    IntegrationType = "extraction"
	IntegrationChat          IntegrationType = "chat"
	IntegrationCalendar      IntegrationType = "calendar"
)

// IntegrationOutcome is the result of an external call attempt.
type IntegrationOutcome string

// Integration outcomes.
const (
	OutcomeSuccess IntegrationOutcome = "success"
	OutcomeError   IntegrationOutcome = "error"
)

// IntegrationLogEntry is an append-only record of one external call attempt.
// Entries are never mutated or deleted by the pipeline.
type IntegrationLogEntry struct {
	UID             string             `json:"uid"`
	EntityType      EntityType         `json:"entity_type"`
	EntityUID       string             `json:"entity_uid"`
	IntegrationType IntegrationType    `json:"integration_type"`
	Outcome         IntegrationOutcome `json:"outcome"`
	// ErrorType is the classified error name for error outcomes (e.g. "auth", "transient").
	ErrorType string         `json:"error_type,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
