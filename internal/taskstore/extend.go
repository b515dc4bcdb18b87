package taskstore

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// taskIDPattern matches conversation-scoped task identifiers.
var taskIDPattern = regexp.MustCompile(`task_(\d+)`)

// TaskID formats the canonical identifier for task number n.
func TaskID(n int) string {
	return fmt.Sprintf("task_%d", n)
}

// taskNumber extracts the numeric suffix of a task ID, or -1.
func taskNumber(id string) int {
	m := taskIDPattern.FindStringSubmatch(id)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// NextTaskNumber returns the next available task number. It scans the
// existing task list's numeric suffixes; if the state is empty, it also
// scans conversation memory values for task-ID-shaped substrings, which
// guards against ID collisions after a partial state clear.
func (s *State) NextTaskNumber(memory map[string]any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := -1
	for _, t := range s.tasks {
		if n := taskNumber(t.ID); n > max {
			max = n
		}
	}
	if len(s.tasks) == 0 {
		for _, v := range memory {
			for _, m := range taskIDPattern.FindAllStringSubmatch(fmt.Sprint(v), -1) {
				if n, err := strconv.Atoi(m[1]); err == nil && n > max {
					max = n
				}
			}
		}
	}
	return max + 1
}

// Restore loads persisted tasks into an empty state, preserving their IDs.
// Tasks that were in progress when the process died are returned to pending;
// their work is lost and must be redone.
func (s *State) Restore(tasks []*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tasks {
		if t.Status == models.TaskStatusInProgress {
			t.Status = models.TaskStatusPending
			t.Result = nil
		}
		s.tasks = append(s.tasks, t)
		s.syncSetsLocked(t)
	}
	s.debugLog("[taskstore.Restore] restored %d tasks", len(tasks))
}

// Extend appends newly extracted tasks to the state, renumbering them from
// the next available task number. Dependency references that point at the
// incoming batch's pre-renumbering IDs are rewritten to the new IDs;
// references to tasks already in the state are kept as-is.
func (s *State) Extend(newTasks []*models.Task, memory map[string]any) []*models.Task {
	base := s.NextTaskNumber(memory)

	s.mu.Lock()
	defer s.mu.Unlock()

	renumbered := make(map[string]string, len(newTasks))
	for i, t := range newTasks {
		renumbered[t.ID] = TaskID(base + i)
	}

	for i, t := range newTasks {
		oldID := t.ID
		t.ID = TaskID(base + i)
		for j, dep := range t.Dependencies {
			if newID, ok := renumbered[dep]; ok {
				t.Dependencies[j] = newID
			}
		}
		s.debugLog("[taskstore.Extend] task %q renumbered %s -> %s deps=%v", t.Description, oldID, t.ID, t.Dependencies)
		s.tasks = append(s.tasks, t)
		s.syncSetsLocked(t)
	}
	return newTasks
}
