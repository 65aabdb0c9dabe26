// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

const (
	keyPrefix = "lfx:meeting-pipeline:lock:"
	// DefaultPollInterval is how often a waiting Lock retries SETNX
	DefaultPollInterval = 250 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the TTL only if the key still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisClient is the subset of [redis.Cmdable] the locker uses.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker serializes work on a meeting across processes. A local keyed
// mutex is taken first so goroutines of one process never poll Redis against
// each other.
type RedisLocker struct {
	client       RedisClient
	local        *concurrent.KeyedMutex
	ttl          time.Duration
	pollInterval time.Duration
}

var _ domain.MeetingLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a new cross-process meeting locker
func NewRedisLocker(client RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = constants.MeetingLockTTL
	}
	return &RedisLocker{
		client:       client,
		local:        concurrent.NewKeyedMutex(),
		ttl:          ttl,
		pollInterval: DefaultPollInterval,
	}
}

// Lock blocks until the meeting lock is held in Redis or ctx is done. The lock
// TTL is refreshed while held.
func (l *RedisLocker) Lock(ctx context.Context, meetingUID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, meetingUID)
	if err != nil {
		return nil, domain.NewTransientError("timed out waiting for meeting lock", err)
	}

	key := keyPrefix + meetingUID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, domain.NewUnavailableError("failed to acquire meeting lock", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, domain.NewTransientError("timed out waiting for meeting lock", ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}

	stop := make(chan struct{})
	go l.keepAlive(key, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)

			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				slog.WarnContext(ctx, "failed to release meeting lock, it will expire",
					"meeting_uid", meetingUID,
					logging.ErrKey, err)
			}
			unlockLocal()
		})
	}, nil
}

func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Err()
			cancel()
			if err != nil {
				slog.Warn("failed to refresh meeting lock", "key", key, logging.ErrKey, err)
			}
		}
	}
}
