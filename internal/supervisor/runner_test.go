package supervisor

import (
	"context"
	"strings"
	"testing"

	"github.com/kestrel-ai/kestrel/internal/pipeline"
	"github.com/kestrel-ai/kestrel/internal/resolve"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

func newTestRunner(t *testing.T, payload any) (*Runner, *int) {
	t.Helper()
	calls := 0
	tool := pipeline.ToolFunc{
		ToolName: "test_tool",
		Fn: func(_ context.Context, operation string) (any, error) {
			calls++
			return payload, nil
		},
	}
	engine := resolve.New(nil, nil)
	readPipe := pipeline.New(models.TaskKindRead, nil, nil, engine, tool)
	writePipe := pipeline.New(models.TaskKindWrite, nil, nil, engine, tool)
	sup := heuristicSupervisor(Config{})
	return NewRunner(sup, readPipe, writePipe), &calls
}

func TestRunTurnCompletesSimpleRequest(t *testing.T) {
	runner, calls := newTestRunner(t, []any{map[string]any{"companyId": "comp_1"}})
	turn := NewTurn(models.Identity{ID: "u1", CompanyID: "comp_1"})

	res := runner.RunTurn(context.Background(), turn, "list payments for company acme")

	if !strings.Contains(res.Message, "Completed 1") {
		t.Errorf("message = %q", res.Message)
	}
	if *calls != 1 {
		t.Errorf("tool called %d times, want 1", *calls)
	}
	if res.Ticks >= DefaultMaxTicks {
		t.Errorf("turn consumed %d ticks, must terminate well under the limit", res.Ticks)
	}
	if turn.State.Get("task_0").Status != models.TaskStatusCompleted {
		t.Error("task must be completed")
	}
}

func TestRunTurnOrderedSteps(t *testing.T) {
	runner, calls := newTestRunner(t, map[string]any{"contractId": "cont_1"})
	turn := NewTurn(models.Identity{ID: "u1", CompanyID: "comp_1"})

	res := runner.RunTurn(context.Background(), turn,
		"list contracts for company acme, then terminate contract cont_1")

	if *calls != 2 {
		t.Fatalf("tool called %d times, want 2", *calls)
	}
	if !strings.Contains(res.Message, "Completed 2") {
		t.Errorf("message = %q", res.Message)
	}
	// The dependent write must have run after its prerequisite completed.
	write := turn.State.Get("task_1")
	if write.Kind != models.TaskKindWrite || write.Status != models.TaskStatusCompleted {
		t.Errorf("dependent task: kind %s status %s", write.Kind, write.Status)
	}
}

func TestRunTurnIdempotentReAsk(t *testing.T) {
	runner, _ := newTestRunner(t, []any{})
	turn := NewTurn(models.Identity{ID: "u1", CompanyID: "comp_1"})

	runner.RunTurn(context.Background(), turn, "list payments for company acme")
	if turn.State.Len() != 1 {
		t.Fatalf("first turn created %d tasks", turn.State.Len())
	}

	// Asking again in a new turn creates a fresh, disjoint task set.
	runner.RunTurn(context.Background(), turn, "list payments for company acme")
	if turn.State.Len() != 2 {
		t.Fatalf("second turn: %d tasks, want 2", turn.State.Len())
	}
	ids := make(map[string]bool)
	for _, task := range turn.State.Tasks() {
		if ids[task.ID] {
			t.Fatalf("duplicate task ID %s across turns", task.ID)
		}
		ids[task.ID] = true
	}
	if !ids["task_0"] || !ids["task_1"] {
		t.Errorf("expected task_0 and task_1, got %v", ids)
	}
}

func TestRunTurnMissingPipelineFailsTask(t *testing.T) {
	// Register only the read pipeline; a write task has nowhere to go.
	tool := pipeline.ToolFunc{ToolName: "test_tool", Fn: func(_ context.Context, _ string) (any, error) {
		return nil, nil
	}}
	readPipe := pipeline.New(models.TaskKindRead, nil, nil, resolve.New(nil, nil), tool)
	runner := NewRunner(heuristicSupervisor(Config{}), readPipe)
	turn := NewTurn(models.Identity{})

	res := runner.RunTurn(context.Background(), turn, "terminate contract cont_1")

	task := turn.State.Get("task_0")
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("task status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Error, "no pipeline registered") {
		t.Errorf("task error = %q", task.Error)
	}
	if !strings.Contains(res.Message, "failed") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestRunTurnSurfacesGapSuggestions(t *testing.T) {
	runner, _ := newTestRunner(t, []any{})
	turn := NewTurn(models.Identity{})

	// No employee identifier anywhere: the gap report must reach the caller.
	res := runner.RunTurn(context.Background(), turn, "get the employee record")

	if len(res.Suggestions) == 0 {
		t.Fatal("expected workflow suggestions for the unresolved employeeId")
	}
	found := false
	for _, s := range res.Suggestions {
		if s.Parameter == "employeeId" {
			found = true
		}
	}
	if !found {
		t.Errorf("no suggestion names employeeId: %+v", res.Suggestions)
	}
}
