package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

func TestParseResponseValid(t *testing.T) {
	response := `Here is the plan:
[
  {"description": "list contracts for company acme", "kind": "read", "dependencies": []},
  {"description": "terminate contract", "kind": "write", "dependencies": ["task_0"]}
]
Let me know if you need anything else.`

	tasks, err := ParseResponse(response)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "task_0" || tasks[1].ID != "task_1" {
		t.Errorf("batch-local IDs wrong: %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].Kind != models.TaskKindRead || tasks[1].Kind != models.TaskKindWrite {
		t.Errorf("kinds wrong: %s, %s", tasks[0].Kind, tasks[1].Kind)
	}
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != "task_0" {
		t.Errorf("deps wrong: %v", tasks[1].Dependencies)
	}
}

func TestParseResponseBareIndexDependency(t *testing.T) {
	response := `[
  {"description": "first", "kind": "read"},
  {"description": "second", "kind": "read", "dependencies": ["0"]}
]`
	tasks, err := ParseResponse(response)
	if err != nil {
		t.Fatal(err)
	}
	if tasks[1].Dependencies[0] != "task_0" {
		t.Errorf("bare index must normalize to task_0, got %v", tasks[1].Dependencies)
	}
}

func TestParseResponseRejectsForwardReference(t *testing.T) {
	response := `[
  {"description": "first", "kind": "read", "dependencies": ["1"]},
  {"description": "second", "kind": "read"}
]`
	if _, err := ParseResponse(response); err == nil {
		t.Error("forward dependency reference must be rejected")
	}
}

func TestParseResponseRejectsSelfReference(t *testing.T) {
	response := `[{"description": "only", "kind": "read", "dependencies": ["task_0"]}]`
	if _, err := ParseResponse(response); err == nil {
		t.Error("self reference must be rejected")
	}
}

func TestParseResponseRejectsEmptyDescription(t *testing.T) {
	response := `[{"description": "   ", "kind": "read"}]`
	if _, err := ParseResponse(response); err == nil {
		t.Error("empty description must be rejected")
	}
}

func TestParseResponseNoArray(t *testing.T) {
	_, err := ParseResponse("I could not identify any tasks in that request.")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "no JSON array") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInferKindField(t *testing.T) {
	cases := []struct {
		kind, pipeline string
		want           models.TaskKind
	}{
		{"write", "", models.TaskKindWrite},
		{"mutation", "", models.TaskKindWrite},
		{"", "mutate", models.TaskKindWrite},
		{"read", "", models.TaskKindRead},
		{"query", "", models.TaskKindRead},
		{"banana", "", models.TaskKindRead},
	}
	for _, c := range cases {
		if got := inferKindField(c.kind, c.pipeline); got != c.want {
			t.Errorf("inferKindField(%q, %q) = %s, want %s", c.kind, c.pipeline, got, c.want)
		}
	}
}

// failingCompleter always errors, forcing the heuristic fallback.
type failingCompleter struct{}

func (failingCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("model unavailable")
}

// cannedCompleter returns a fixed response.
type cannedCompleter struct{ response string }

func (c cannedCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return c.response, nil
}

func TestExtractFallsBackOnLLMError(t *testing.T) {
	e := New(failingCompleter{}, nil)
	tasks := e.Extract(context.Background(), "list the active contracts", "")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 heuristic task, got %d", len(tasks))
	}
	if tasks[0].Kind != models.TaskKindRead {
		t.Errorf("kind = %s, want read", tasks[0].Kind)
	}
}

func TestExtractFallsBackOnMalformedResponse(t *testing.T) {
	e := New(cannedCompleter{response: "sorry, no tasks here"}, nil)
	tasks := e.Extract(context.Background(), "terminate contract cont_1", "")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 heuristic task, got %d", len(tasks))
	}
	if tasks[0].Kind != models.TaskKindWrite {
		t.Errorf("kind = %s, want write (terminate)", tasks[0].Kind)
	}
}

func TestExtractUsesLLMWhenResponseParses(t *testing.T) {
	e := New(cannedCompleter{response: `[{"description": "list payments", "kind": "read"}]`}, nil)
	tasks := e.Extract(context.Background(), "whatever the user said", "")
	if len(tasks) != 1 || tasks[0].Description != "list payments" {
		t.Fatalf("expected the LLM batch, got %+v", tasks)
	}
}
