// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package lock provides per-meeting single-flight locks.
package lock

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/concurrent"
)

// LocalLocker serializes work on a meeting within one process.
type LocalLocker struct {
	mutex *concurrent.KeyedMutex
}

var _ domain.MeetingLocker = (*LocalLocker)(nil)

// NewLocalLocker creates a new in-process meeting locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{mutex: concurrent.NewKeyedMutex()}
}

// Lock blocks until the meeting is held by the caller or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, meetingUID string) (func(), error) {
	unlock, err := l.mutex.Lock(ctx, meetingUID)
	if err != nil {
		return nil, domain.NewTransientError("timed out waiting for meeting lock", err)
	}
	return unlock, nil
}
