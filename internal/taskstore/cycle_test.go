package taskstore

import (
	"strings"
	"testing"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

func TestDetectCycleAcyclic(t *testing.T) {
	tasks := []*models.Task{
		models.NewTask("task_0", "a", models.TaskKindRead, nil),
		models.NewTask("task_1", "b", models.TaskKindRead, []string{"task_0"}),
		models.NewTask("task_2", "c", models.TaskKindRead, []string{"task_0", "task_1"}),
	}
	if cycle := DetectCycle(tasks); cycle != nil {
		t.Errorf("expected no cycle, got %v", cycle)
	}
}

func TestDetectCycleTwoNode(t *testing.T) {
	tasks := []*models.Task{
		models.NewTask("task_0", "a", models.TaskKindRead, []string{"task_1"}),
		models.NewTask("task_1", "b", models.TaskKindRead, []string{"task_0"}),
	}
	cycle := DetectCycle(tasks)
	if cycle == nil {
		t.Fatal("expected a cycle")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle path must close on its first node, got %v", cycle)
	}
	if len(cycle) != 3 {
		t.Errorf("expected path of length 3, got %v", cycle)
	}
}

func TestDetectCycleSelfReference(t *testing.T) {
	tasks := []*models.Task{
		models.NewTask("task_0", "a", models.TaskKindRead, []string{"task_0"}),
	}
	cycle := DetectCycle(tasks)
	if len(cycle) != 2 || cycle[0] != "task_0" || cycle[1] != "task_0" {
		t.Errorf("expected [task_0 task_0], got %v", cycle)
	}
}

func TestFailCyclesFailsWholeCycleOnly(t *testing.T) {
	s := NewState()
	s.Extend([]*models.Task{
		models.NewTask("task_0", "independent", models.TaskKindRead, nil),
		models.NewTask("task_1", "cyclic a", models.TaskKindRead, []string{"task_2"}),
		models.NewTask("task_2", "cyclic b", models.TaskKindRead, []string{"task_1"}),
	}, nil)

	failed := s.FailCycles()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed tasks, got %v", failed)
	}
	if s.Get("task_0").Status != models.TaskStatusPending {
		t.Error("task outside the cycle must stay pending")
	}
	for _, id := range []string{"task_1", "task_2"} {
		task := s.Get(id)
		if task.Status != models.TaskStatusFailed {
			t.Errorf("%s status = %s, want failed", id, task.Status)
		}
		if !strings.Contains(task.Error, "circular dependency detected") {
			t.Errorf("%s error %q missing cycle explanation", id, task.Error)
		}
		if !strings.Contains(task.Error, " -> ") {
			t.Errorf("%s error %q missing cycle path", id, task.Error)
		}
	}
}

func TestFailCyclesMultipleCycles(t *testing.T) {
	s := NewState()
	s.Extend([]*models.Task{
		models.NewTask("task_0", "cycle one a", models.TaskKindRead, []string{"task_1"}),
		models.NewTask("task_1", "cycle one b", models.TaskKindRead, []string{"task_0"}),
		models.NewTask("task_2", "cycle two", models.TaskKindRead, []string{"task_2"}),
	}, nil)

	failed := s.FailCycles()
	if len(failed) != 3 {
		t.Fatalf("expected all 3 cyclic tasks failed, got %v", failed)
	}
	if s.HasRunnable() {
		t.Error("no runnable tasks should remain")
	}
}
