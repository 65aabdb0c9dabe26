// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"errors"
)

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation    ErrorType = iota // Input validation errors
	ErrorTypeNotFound                       // Referenced entity missing; job is discarded
	ErrorTypeConflict                       // Optimistic concurrency conflict in the store
	ErrorTypeInternal                       // Internal errors
	ErrorTypeUnavailable                    // Store or dependency not available
	ErrorTypeTransient                      // Network, timeout or rate limit from a collaborator
	ErrorTypePermanent                      // Collaborator rejected the input, never retried
	ErrorTypeAuth                           // Missing or rejected user credential
	ErrorTypeParse                          // Malformed model output for a single item
	ErrorTypeStateConflict                  // Transition from a terminal or out-of-order state
)

// String returns the log/wire name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeParse:
		return "parse"
	case ErrorTypeStateConflict:
		return "state_conflict"
	default:
		return "internal"
	}
}

// Common errors
var (
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrRecordingMissing   = errors.New("meeting has no recording reference")
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrMissingDescription = errors.New("action item description is required")
	ErrNoAssignee         = errors.New("action item has no resolvable assignee")
	ErrMissingCredential  = errors.New("user has no integration credential")
	ErrInternal           = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTransient
	}
	return ErrorTypeInternal // default fallback
}

// IsRetryable reports whether a failed stage may succeed on a later attempt.
// Store outages count as transient; an exceeded external-call deadline does too.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch GetErrorType(err) {
	case ErrorTypeTransient, ErrorTypeUnavailable, ErrorTypeInternal, ErrorTypeConflict:
		return true
	default:
		return false
	}
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewTransientError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeTransient, Message: message, Err: errors.Join(err...)}
}

func NewPermanentError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypePermanent, Message: message, Err: errors.Join(err...)}
}

func NewAuthError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeAuth, Message: message, Err: errors.Join(err...)}
}

func NewParseError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeParse, Message: message, Err: errors.Join(err...)}
}

func NewStateConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeStateConflict, Message: message, Err: errors.Join(err...)}
}
