// Package taskstore holds the task graph for one conversation: the ordered
// task list, its lifecycle state machine, and the derived completed/failed
// ID sets.
package taskstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// State is the task graph for a single conversation. The task list is in
// creation order; completed and failed are derived sets kept consistent with
// task statuses on every mutation.
type State struct {
	mu sync.RWMutex
	// tasks is the arena of all tasks, in creation order.
	tasks []*models.Task
	// completed tracks IDs of tasks with status completed.
	completed map[string]bool
	// failed tracks IDs of tasks with status failed.
	failed map[string]bool
	// executionStart anchors the current batch of tasks.
	executionStart time.Time
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// NewState creates an empty task state.
func NewState() *State {
	return &State{
		completed:      make(map[string]bool),
		failed:         make(map[string]bool),
		executionStart: time.Now(),
		debugLog:       func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (s *State) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// Tasks returns a snapshot of the task list in creation order.
func (s *State) Tasks() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with the given ID, or nil if not found.
func (s *State) Get(id string) *models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *State) getLocked(id string) *models.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Len returns the number of tasks in the state.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// ExecutionStart returns the wall-clock anchor for the current batch.
func (s *State) ExecutionStart() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executionStart
}

// CompletedIDs returns the set of completed task IDs.
func (s *State) CompletedIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.completed))
	for id := range s.completed {
		out[id] = true
	}
	return out
}

// FailedIDs returns the set of failed task IDs.
func (s *State) FailedIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.failed))
	for id := range s.failed {
		out[id] = true
	}
	return out
}

// SelectNext scans tasks in creation order and returns the first pending
// task whose dependencies have all reached completed status. The returned
// task is atomically transitioned to in_progress; no other task is touched.
// Returns nil if no task is selectable.
func (s *State) SelectNext() *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Status != models.TaskStatusPending {
			continue
		}
		if !s.depsSatisfiedLocked(t) {
			s.debugLog("[taskstore.SelectNext] task %s not ready, deps %v unsatisfied", t.ID, t.Dependencies)
			continue
		}
		t.Status = models.TaskStatusInProgress
		s.debugLog("[taskstore.SelectNext] selected task %s (%s)", t.ID, t.Description)
		return t
	}
	return nil
}

// depsSatisfiedLocked checks dependency satisfaction by task status. Status
// is authoritative; the completed set is bookkeeping, not the source of
// truth.
func (s *State) depsSatisfiedLocked(t *models.Task) bool {
	for _, depID := range t.Dependencies {
		dep := s.getLocked(depID)
		if dep == nil || dep.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// HasRunnable returns true if any task is pending or in progress.
func (s *State) HasRunnable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if !t.Status.Terminal() {
			return true
		}
	}
	return false
}

// AllTerminal returns true if every task has reached completed or failed.
// An empty state counts as terminal.
func (s *State) AllTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// RecordResult transitions exactly the targeted task to completed, stores
// the result payload, and updates the membership sets.
func (s *State) RecordResult(taskID string, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return fmt.Errorf("record result: task %s not found", taskID)
	}
	now := time.Now()
	t.Status = models.TaskStatusCompleted
	t.Result = result
	t.Error = ""
	t.CompletedAt = &now
	s.syncSetsLocked(t)
	s.debugLog("[taskstore.RecordResult] task %s completed", taskID)
	return nil
}

// RecordFailure transitions exactly the targeted task to failed, stores the
// error message, and updates the membership sets.
func (s *State) RecordFailure(taskID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return fmt.Errorf("record failure: task %s not found", taskID)
	}
	now := time.Now()
	t.Status = models.TaskStatusFailed
	t.Error = errMsg
	t.Result = nil
	t.CompletedAt = &now
	s.syncSetsLocked(t)
	s.debugLog("[taskstore.RecordFailure] task %s failed: %s", taskID, errMsg)
	return nil
}

// AttachContext stores a resolution snapshot on the task for audit.
func (s *State) AttachContext(taskID string, gc *models.GatheredContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.getLocked(taskID); t != nil {
		t.ResolvedContext = gc
	}
}

// syncSetsLocked reconciles the membership sets for a single task after a
// status change. Only the given task's membership is recomputed.
func (s *State) syncSetsLocked(t *models.Task) {
	delete(s.completed, t.ID)
	delete(s.failed, t.ID)
	switch t.Status {
	case models.TaskStatusCompleted:
		s.completed[t.ID] = true
	case models.TaskStatusFailed:
		s.failed[t.ID] = true
	}
}

// FailAll transitions every non-terminal task to failed with the given
// error. Used by the supervisor's deadlock circuit breaker.
func (s *State) FailAll(errMsg string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []string
	now := time.Now()
	for _, t := range s.tasks {
		if t.Status.Terminal() {
			continue
		}
		t.Status = models.TaskStatusFailed
		t.Error = errMsg
		t.CompletedAt = &now
		s.syncSetsLocked(t)
		failed = append(failed, t.ID)
	}
	s.debugLog("[taskstore.FailAll] failed %d stuck tasks: %v", len(failed), failed)
	return failed
}

// Compact keeps only pending and in_progress tasks and clears both
// membership sets, bounding memory growth across long conversations.
func (s *State) Compact() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.Status.Terminal() {
			kept = append(kept, t)
		}
	}
	dropped := len(s.tasks) - len(kept)
	s.tasks = kept
	s.completed = make(map[string]bool)
	s.failed = make(map[string]bool)
	s.debugLog("[taskstore.Compact] dropped %d terminal tasks, %d remain", dropped, len(kept))
}

// Reset returns a terminal task to pending so it can be retried. This is the
// only transition out of completed/failed besides compaction.
func (s *State) Reset(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getLocked(taskID)
	if t == nil {
		return fmt.Errorf("reset: task %s not found", taskID)
	}
	t.Status = models.TaskStatusPending
	t.Result = nil
	t.Error = ""
	t.CompletedAt = nil
	s.syncSetsLocked(t)
	return nil
}
