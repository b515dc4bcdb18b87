package memory

import (
	"fmt"
	"testing"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

func TestMemorySnapshotIsolation(t *testing.T) {
	m := New()
	m.Set("a", "1")

	snap := m.Snapshot()
	m.Set("a", "2")
	m.Set("b", "3")

	if snap["a"] != "1" {
		t.Errorf("snapshot mutated: a = %v, want 1", snap["a"])
	}
	if _, ok := snap["b"]; ok {
		t.Error("snapshot must not see writes made after it was taken")
	}
	if m.GetString("a") != "2" {
		t.Errorf("live value = %q, want 2", m.GetString("a"))
	}
}

func TestMemoryGetString(t *testing.T) {
	m := New()
	m.Set("s", "hello")
	m.Set("n", 42)

	if got := m.GetString("s"); got != "hello" {
		t.Errorf("GetString(s) = %q", got)
	}
	if got := m.GetString("n"); got != "" {
		t.Errorf("non-string value must return empty, got %q", got)
	}
	if got := m.GetString("missing"); got != "" {
		t.Errorf("missing key must return empty, got %q", got)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := New()
	m.Set("k", "v")
	m.Delete("k")
	if _, ok := m.Get("k"); ok {
		t.Error("key should be gone after delete")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestContextHistoryBound(t *testing.T) {
	h := NewContextHistory(0) // zero falls back to the default limit

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		h.Append(&models.GatheredContext{TaskID: taskID(i)})
	}

	if h.Len() != DefaultHistoryLimit {
		t.Fatalf("Len = %d, want %d", h.Len(), DefaultHistoryLimit)
	}
	entries := h.Entries()
	if entries[0].TaskID != taskID(5) {
		t.Errorf("oldest retained entry = %s, want %s (front eviction)", entries[0].TaskID, taskID(5))
	}
	if h.Latest().TaskID != taskID(DefaultHistoryLimit+4) {
		t.Errorf("latest = %s, want %s", h.Latest().TaskID, taskID(DefaultHistoryLimit+4))
	}
}

func TestContextHistoryIgnoresNil(t *testing.T) {
	h := NewContextHistory(3)
	h.Append(nil)
	if h.Len() != 0 {
		t.Errorf("nil append must be a no-op, Len = %d", h.Len())
	}
	if h.Latest() != nil {
		t.Error("Latest on empty history must be nil")
	}
}

func taskID(n int) string {
	return fmt.Sprintf("task_%d", n)
}
