// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import "time"

// StringPtr converts a string to a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// StringValue returns the value of a string pointer, or "" when it is nil.
func StringValue(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// TimePtr converts a time to a pointer to a time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// FormatTimePtr formats an optional time, returning "" when it is nil.
func FormatTimePtr(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
