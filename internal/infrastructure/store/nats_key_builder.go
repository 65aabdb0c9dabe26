// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
)

// Key wildcards understood by ListKeysFiltered.
const (
	KeyWildcardToken = "*"
	KeyWildcardTail  = ">"
)

// validKeyToken matches a single dot-separated NATS KV key token.
var validKeyToken = regexp.MustCompile(`^[-/_=a-zA-Z0-9]+$`)

// KeyBuilder provides utilities for building consistent NATS KV keys.
// Keys are dot separated so that subject filters can select ranges of them.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// CompoundKey builds a key from multiple tokens (e.g. "action_item.uid-1.chat.entry-1").
func (kb *KeyBuilder) CompoundKey(parts ...string) (string, error) {
	for _, part := range parts {
		if part == KeyWildcardToken || part == KeyWildcardTail {
			return "", fmt.Errorf("wildcard %q is not allowed in a key", part)
		}
		if !validKeyToken.MatchString(part) {
			return "", fmt.Errorf("invalid key token %q", part)
		}
	}
	return kb.applyPrefix(strings.Join(parts, ".")), nil
}

// FilterKey builds a subject filter from tokens, appending the tail wildcard.
func (kb *KeyBuilder) FilterKey(parts ...string) string {
	tokens := append(append([]string{}, parts...), KeyWildcardTail)
	return kb.applyPrefix(strings.Join(tokens, "."))
}

// IntegrationLogKey builds the key of one integration log entry:
// <entity_type>.<entity_uid>.<integration>.<entry_uid>
func (kb *KeyBuilder) IntegrationLogKey(entry *models.IntegrationLogEntry) (string, error) {
	return kb.CompoundKey(string(entry.EntityType), entry.EntityUID, string(entry.IntegrationType), entry.UID)
}

// IntegrationLogFilter selects every entry of an entity, optionally narrowed to one integration.
func (kb *KeyBuilder) IntegrationLogFilter(entityType models.EntityType, entityUID string, integration models.IntegrationType) string {
	if integration == "" {
		return kb.FilterKey(string(entityType), entityUID)
	}
	return kb.FilterKey(string(entityType), entityUID, string(integration))
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string) string {
	if kb.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s.%s", kb.prefix, key)
}
