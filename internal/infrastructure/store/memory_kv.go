// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// memoryKeyValueEntry implements jetstream.KeyValueEntry
type memoryKeyValueEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
}

func (m *memoryKeyValueEntry) Key() string                     { return m.key }
func (m *memoryKeyValueEntry) Value() []byte                   { return m.value }
func (m *memoryKeyValueEntry) Revision() uint64                { return m.revision }
func (m *memoryKeyValueEntry) Created() time.Time              { return m.created }
func (m *memoryKeyValueEntry) Delta() uint64                   { return 0 }
func (m *memoryKeyValueEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }
func (m *memoryKeyValueEntry) Bucket() string                  { return m.bucket }

// memoryKeyLister implements jetstream.KeyLister
type memoryKeyLister struct {
	keys []string
}

func (m *memoryKeyLister) Keys() <-chan string {
	ch := make(chan string, len(m.keys))
	for _, key := range m.keys {
		ch <- key
	}
	close(ch)
	return ch
}

func (m *memoryKeyLister) Stop() error { return nil }

// MemoryKeyValue is an in-process INatsKeyValue used by tests and local runs.
// Revisions are per bucket and strictly increasing, as in JetStream.
type MemoryKeyValue struct {
	mu        sync.Mutex
	bucket    string
	data      map[string][]byte
	revisions map[string]uint64
	sequence  uint64

	// Injected failures; a non-nil value is returned by the matching operation.
	PutError    error
	GetError    error
	CreateError error
	UpdateError error
	DeleteError error
	ListError   error
}

// NewMemoryKeyValue creates an empty in-memory bucket.
func NewMemoryKeyValue(bucket string) *MemoryKeyValue {
	return &MemoryKeyValue{
		bucket:    bucket,
		data:      make(map[string][]byte),
		revisions: make(map[string]uint64),
	}
}

// Len returns the number of keys in the bucket.
func (m *MemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryKeyValue) sortedKeys(filters []string) []string {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if len(filters) == 0 || matchesAnyFilter(key, filters) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryKeyValue) ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	return &memoryKeyLister{keys: m.sortedKeys(nil)}, nil
}

func (m *MemoryKeyValue) ListKeysFiltered(ctx context.Context, filters ...string) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	return &memoryKeyLister{keys: m.sortedKeys(filters)}, nil
}

func (m *MemoryKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	value, exists := m.data[key]
	if !exists {
		return nil, jetstream.ErrKeyNotFound
	}
	return &memoryKeyValueEntry{bucket: m.bucket, key: key, value: value, revision: m.revisions[key], created: time.Now()}, nil
}

func (m *MemoryKeyValue) store(key string, data []byte) uint64 {
	m.sequence++
	m.data[key] = append([]byte(nil), data...)
	m.revisions[key] = m.sequence
	return m.sequence
}

func (m *MemoryKeyValue) Put(ctx context.Context, key string, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutError != nil {
		return 0, m.PutError
	}
	return m.store(key, data), nil
}

func (m *MemoryKeyValue) Create(ctx context.Context, key string, data []byte, opts ...jetstream.KVCreateOpt) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	if _, exists := m.data[key]; exists {
		return 0, jetstream.ErrKeyExists
	}
	return m.store(key, data), nil
}

func (m *MemoryKeyValue) Update(ctx context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	currentRevision, exists := m.revisions[key]
	if !exists {
		return 0, jetstream.ErrKeyNotFound
	}
	if currentRevision != expectedRevision {
		return 0, errors.New("nats: wrong last sequence")
	}
	return m.store(key, data), nil
}

func (m *MemoryKeyValue) Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, exists := m.data[key]; !exists {
		return jetstream.ErrKeyNotFound
	}
	delete(m.data, key)
	delete(m.revisions, key)
	return nil
}

// matchesAnyFilter reports whether key matches one of the NATS subject filters.
func matchesAnyFilter(key string, filters []string) bool {
	for _, filter := range filters {
		if matchesFilter(key, filter) {
			return true
		}
	}
	return false
}

func matchesFilter(key, filter string) bool {
	keyTokens := strings.Split(key, ".")
	filterTokens := strings.Split(filter, ".")
	for i, ft := range filterTokens {
		if ft == KeyWildcardTail {
			return len(keyTokens) > i
		}
		if i >= len(keyTokens) {
			return false
		}
		if ft != KeyWildcardToken && ft != keyTokens[i] {
			return false
		}
	}
	return len(keyTokens) == len(filterTokens)
}
