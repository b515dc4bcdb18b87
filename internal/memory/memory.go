// Package memory provides the conversation-scoped key-value store and the
// bounded rolling history of context resolution snapshots.
package memory

import (
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Memory is the conversation-scoped key-value store. Values are opaque to
// the store. Snapshot returns a shallow clone so a map instance is never
// shared across a tick boundary.
type Memory struct {
	values map[string]any
}

// New creates an empty conversation memory.
func New() *Memory {
	return &Memory{values: make(map[string]any)}
}

// Get returns the value for key and whether it was present.
func (m *Memory) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the string value for key, or "" if absent or not a
// string.
func (m *Memory) GetString(key string) string {
	if v, ok := m.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Set stores a value under key.
func (m *Memory) Set(key string, value any) {
	m.values[key] = value
}

// Delete removes key from the store.
func (m *Memory) Delete(key string) {
	delete(m.values, key)
}

// Snapshot returns a shallow copy of the underlying map. Callers that cross
// a tick boundary must read from a snapshot, never the live map.
func (m *Memory) Snapshot() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return len(m.values)
}

// DefaultHistoryLimit bounds the rolling context history.
const DefaultHistoryLimit = 10

// ContextHistory is a bounded rolling window of resolution snapshots, oldest
// first. Appending beyond the limit evicts from the front.
type ContextHistory struct {
	limit   int
	entries []*models.GatheredContext
}

// NewContextHistory creates a history bounded to limit entries. A limit of
// zero or less uses DefaultHistoryLimit.
func NewContextHistory(limit int) *ContextHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ContextHistory{limit: limit}
}

// Append adds a snapshot, evicting the oldest entry when full.
func (h *ContextHistory) Append(gc *models.GatheredContext) {
	if gc == nil {
		return
	}
	h.entries = append(h.entries, gc)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Latest returns the most recent snapshot, or nil if empty.
func (h *ContextHistory) Latest() *models.GatheredContext {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns the snapshots oldest first.
func (h *ContextHistory) Entries() []*models.GatheredContext {
	out := make([]*models.GatheredContext, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained snapshots.
func (h *ContextHistory) Len() int {
	return len(h.entries)
}
