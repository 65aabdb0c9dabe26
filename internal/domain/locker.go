// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "context"

// MeetingLocker provides single-flight execution per meeting UID.
// Lock blocks until the lock is held or ctx is done; the returned function
// releases it and is safe to call more than once.
type MeetingLocker interface {
	Lock(ctx context.Context, meetingUID string) (unlock func(), err error)
}
