// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"sync"
)

// KeyedMutex is a set of mutexes addressed by key. Locks for different keys
// never contend; entries are dropped once no holder or waiter remains.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	// ch holds one token while the key is unlocked.
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (km *KeyedMutex) acquireRef(key string) *keyedLock {
	km.mu.Lock()
	defer km.mu.Unlock()

	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		l.ch <- struct{}{}
		km.locks[key] = l
	}
	l.refs++
	return l
}

func (km *KeyedMutex) releaseRef(key string, l *keyedLock) {
	km.mu.Lock()
	defer km.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
}

// Lock blocks until the key is held or ctx is done. The returned unlock
// function may be called more than once; only the first call releases.
func (km *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	l := km.acquireRef(key)

	select {
	case <-l.ch:
	case <-ctx.Done():
		km.releaseRef(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.ch <- struct{}{}
			km.releaseRef(key, l)
		})
	}, nil
}

// TryLock acquires the key without waiting. It returns false if the key is held.
func (km *KeyedMutex) TryLock(key string) (func(), bool) {
	l := km.acquireRef(key)

	select {
	case <-l.ch:
	default:
		km.releaseRef(key, l)
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.ch <- struct{}{}
			km.releaseRef(key, l)
		})
	}, true
}

// Len returns the number of keys currently held or waited on
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
