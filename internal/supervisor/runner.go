package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/pipeline"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Runner drives Step in a loop for one user turn, dispatching routed tasks
// to their pipelines and feeding outcomes back through the task state.
// Execution is cooperative and single-threaded: exactly one task is in
// flight at any time.
type Runner struct {
	sup       *Supervisor
	pipelines map[models.TaskKind]*pipeline.Pipeline
}

// NewRunner creates a runner over the given pipelines.
func NewRunner(sup *Supervisor, pipelines ...*pipeline.Pipeline) *Runner {
	m := make(map[models.TaskKind]*pipeline.Pipeline, len(pipelines))
	for _, p := range pipelines {
		m[p.Kind()] = p
	}
	return &Runner{sup: sup, pipelines: m}
}

// TurnResult summarizes one completed user turn.
type TurnResult struct {
	// Message is the final user-facing message for the turn.
	Message string
	// Suggestions aggregates workflow suggestions surfaced during the turn.
	Suggestions []models.WorkflowSuggestion
	// Ticks is how many scheduling ticks the turn consumed.
	Ticks int
}

// RunTurn processes one user utterance to termination. The turn's tick
// counter is reset so admission control sees a fresh turn.
func (r *Runner) RunTurn(ctx context.Context, turn *Turn, utterance string) TurnResult {
	turn.Messages = append(turn.Messages, Message{Role: RoleUser, Content: utterance})
	turn.TickCount = 0
	turn.DeadlockRetries = 0
	turn.Phase = PhaseAwaitInput

	var result TurnResult
	for {
		decision := r.sup.Step(ctx, turn)
		result.Ticks = turn.TickCount

		switch decision.Type {
		case DecisionTerminate:
			result.Message = decision.Message
			turn.Messages = append(turn.Messages, Message{Role: RoleAssistant, Content: decision.Message})
			return result

		case DecisionWait:
			continue

		case DecisionRoute:
			p, ok := r.pipelines[decision.Pipeline]
			if !ok {
				// A kind with no registered pipeline can never make
				// progress; fail the task instead of spinning.
				_ = turn.State.RecordFailure(decision.Task.ID,
					fmt.Sprintf("no pipeline registered for kind %s", decision.Pipeline))
				continue
			}
			utter := latestUserUtterance(turn)
			runRes := p.Run(ctx, decision.Task, utter, turn.State, turn.Claims, turn.Memory)
			result.Suggestions = append(result.Suggestions, runRes.Suggestions...)
			if runRes.Message != "" {
				turn.Messages = append(turn.Messages, Message{Role: RoleAssistant, Content: runRes.Message})
			}
		}
	}
}

// NewTurn creates the conversation state for a new conversation.
func NewTurn(claims models.Identity) *Turn {
	return &Turn{
		Memory: memory.New(),
		State:  taskstore.NewState(),
		Claims: claims,
		Phase:  PhaseAwaitInput,
	}
}

// FormatSuggestions renders workflow suggestions for the user.
func FormatSuggestions(suggestions []models.WorkflowSuggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Suggestions:\n")
	seen := make(map[string]bool)
	for _, s := range suggestions {
		if seen[s.Description] {
			continue
		}
		seen[s.Description] = true
		fmt.Fprintf(&b, "  - %s\n", s.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
