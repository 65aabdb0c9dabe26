// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// Transcript is the speech-to-text output for a meeting. There is at most one
// transcript per meeting; it is keyed by the meeting UID.
type Transcript struct {
	MeetingUID string              `json:"meeting_uid"`
	FullText   string              `json:"full_text"`
	Segments   []TranscriptSegment `json:"segments"`
	Language   string              `json:"language,omitempty"`
	Duration   float64             `json:"duration,omitempty"` // seconds
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TranscriptSegment is a timed slice of the transcript. Start and End are
// offsets in seconds from the beginning of the recording.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// IsUsable reports whether the transcript has any text to extract from.
func (t *Transcript) IsUsable() bool {
	return t != nil && strings.TrimSpace(t.FullText) != ""
}
