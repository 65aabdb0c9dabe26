// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
)

// fakeRedis keeps keys in memory and runs the locker's scripts natively.
type fakeRedis struct {
	redis.Scripter

	mu        sync.Mutex
	keys      map[string]string
	setNXErr  error
	refreshes int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setNXErr != nil {
		return redis.NewBoolResult(false, f.setNXErr)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.keys[keys[0]] != args[0] {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch sha1 {
	case releaseScript.Hash():
		delete(f.keys, keys[0])
	case refreshScript.Hash():
		f.refreshes++
	}
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[key]
	return ok
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "m1")
	assert.Equal(t, domain.ErrorTypeTransient, domain.GetErrorType(err))

	other, err := locker.Lock(context.Background(), "m2")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	client := newFakeRedis()
	locker := NewRedisLocker(client, time.Minute)

	unlock, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, client.has(keyPrefix+"m1"))

	unlock()
	unlock()
	assert.False(t, client.has(keyPrefix+"m1"))
}

func TestRedisLocker_WaitsForOtherHolder(t *testing.T) {
	client := newFakeRedis()
	// Another process holds the lock.
	client.keys[keyPrefix+"m1"] = "someone-else"

	locker := NewRedisLocker(client, time.Minute)
	locker.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := locker.Lock(ctx, "m1")
	assert.Equal(t, domain.ErrorTypeTransient, domain.GetErrorType(err))

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.mu.Lock()
		delete(client.keys, keyPrefix+"m1")
		client.mu.Unlock()
	}()

	unlock, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_SerializesWithinProcess(t *testing.T) {
	client := newFakeRedis()
	locker := NewRedisLocker(client, time.Minute)
	locker.pollInterval = time.Millisecond

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "m1")
			require.NoError(t, err)
			n := atomic.AddInt32(&inFlight, 1)
			if n > atomic.LoadInt32(&maxInFlight) {
				atomic.StoreInt32(&maxInFlight, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight)
}

func TestRedisLocker_RedisUnavailable(t *testing.T) {
	client := newFakeRedis()
	client.setNXErr = errors.New("connection refused")
	locker := NewRedisLocker(client, time.Minute)

	_, err := locker.Lock(context.Background(), "m1")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))

	// The local lock must have been released.
	client.setNXErr = nil
	unlock, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_RefreshesWhileHeld(t *testing.T) {
	client := newFakeRedis()
	locker := NewRedisLocker(client, 30*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "m1")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	unlock()

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.GreaterOrEqual(t, client.refreshes, 1)
}
