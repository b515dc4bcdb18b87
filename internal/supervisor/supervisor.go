// Package supervisor decides, on every scheduling tick, whether to admit
// new work, which task to run next, and when the turn must terminate.
package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/extract"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Guard bounds. The tick limit guarantees a turn terminates even when the
// graph or the external calls misbehave; the deadlock limit converts "no
// progress possible" into explicit task failures.
const (
	DefaultMaxTicks           = 25
	DefaultDeadlockRetryLimit = 3
)

// MemoryKeyLastTaskUtterance tracks the utterance that last triggered task
// creation, scoped to the session. Cleared when a turn is cut off so the
// next turn is treated as fresh.
const MemoryKeyLastTaskUtterance = "supervisor.last_task_utterance"

// Phase is the turn-level state machine position.
type Phase string

const (
	PhaseAwaitInput Phase = "await_input"
	PhaseAdmitting  Phase = "admitting"
	PhaseSelecting  Phase = "selecting"
	PhaseRouted     Phase = "routed"
	PhaseTerminated Phase = "terminated"
)

// Role labels a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn carries the conversation state across ticks. One Turn is mutated by
// exactly one tick at a time; ticks never run concurrently.
type Turn struct {
	// Messages is the conversation transcript.
	Messages []Message
	// Memory is the conversation-scoped key-value store.
	Memory *memory.Memory
	// State is the task graph for this conversation.
	State *taskstore.State
	// Claims is the raw authenticated identity.
	Claims models.Identity
	// TickCount is the per-turn iteration counter. Zero marks a fresh user
	// turn; anything higher is an internal tick while working through the
	// current turn's tasks.
	TickCount int
	// DeadlockRetries counts consecutive ticks with runnable but
	// unselectable tasks.
	DeadlockRetries int
	// Phase is the turn-level state machine position.
	Phase Phase
}

// DecisionType classifies the outcome of one tick.
type DecisionType string

const (
	// DecisionRoute routes the selected task to a pipeline.
	DecisionRoute DecisionType = "route"
	// DecisionWait asks the runtime to tick again (dependencies pending).
	DecisionWait DecisionType = "wait"
	// DecisionTerminate ends the turn with a message.
	DecisionTerminate DecisionType = "terminate"
)

// Decision is the supervisor's instruction to the surrounding runtime.
type Decision struct {
	Type DecisionType
	// Task is the selected task for DecisionRoute.
	Task *models.Task
	// Pipeline is the target pipeline kind for DecisionRoute.
	Pipeline models.TaskKind
	// Message is the user-facing explanation for DecisionTerminate.
	Message string
}

// Supervisor implements the per-tick control loop.
type Supervisor struct {
	extractor     *extract.Extractor
	journal       *Journal
	maxTicks      int
	deadlockLimit int
	debugLog      func(format string, args ...interface{})
}

// Config bundles supervisor construction options.
type Config struct {
	// Extractor produces task batches from utterances.
	Extractor *extract.Extractor
	// MaxTicks overrides the hard tick ceiling. Zero uses the default.
	MaxTicks int
	// DeadlockRetryLimit overrides the circuit breaker bound. Zero uses
	// the default.
	DeadlockRetryLimit int
}

// New creates a supervisor.
func New(cfg Config) *Supervisor {
	maxTicks := cfg.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	deadlockLimit := cfg.DeadlockRetryLimit
	if deadlockLimit <= 0 {
		deadlockLimit = DefaultDeadlockRetryLimit
	}
	return &Supervisor{
		extractor:     cfg.Extractor,
		journal:       NewJournal(),
		maxTicks:      maxTicks,
		deadlockLimit: deadlockLimit,
		debugLog:      func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (s *Supervisor) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// Journal returns the decision audit trail.
func (s *Supervisor) Journal() *Journal {
	return s.journal
}

// Step executes one scheduling tick. It never returns an error: every
// failure mode resolves to failed tasks or a terminating decision.
func (s *Supervisor) Step(ctx context.Context, turn *Turn) Decision {
	// 1. Message intake and dedup.
	collapseDuplicateAssistantTurns(turn)
	utterance := latestUserUtterance(turn)
	fresh := turn.TickCount == 0
	turn.TickCount++

	// 2. Admission control.
	turn.Phase = PhaseAdmitting
	if s.shouldAdmit(turn, utterance, fresh) {
		batch := s.extractor.Extract(ctx, utterance, transcriptSummary(turn))
		if len(batch) == 0 {
			turn.Phase = PhaseTerminated
			s.journal.Append(Entry{Agent: "supervisor", Action: "terminate", Reason: "no actionable tasks extracted"})
			return Decision{Type: DecisionTerminate, Message: "I could not find anything actionable in that request."}
		}
		added := turn.State.Extend(batch, turn.Memory.Snapshot())
		turn.Memory.Set(MemoryKeyLastTaskUtterance, utterance)
		s.debugLog("[supervisor] admitted %d tasks for %q", len(added), utterance)
		s.journal.Append(Entry{
			Agent:   "supervisor",
			Action:  "admit",
			Reason:  fmt.Sprintf("extracted %d tasks", len(added)),
			Pending: pendingDescriptions(turn.State),
		})
		if failed := turn.State.FailCycles(); len(failed) > 0 {
			s.journal.Append(Entry{
				Agent:  "supervisor",
				Action: "fail_cycle",
				Reason: fmt.Sprintf("cyclic tasks failed: %s", strings.Join(failed, ", ")),
			})
		}
	}

	// 3. Hard tick limit.
	if turn.TickCount >= s.maxTicks {
		turn.Phase = PhaseTerminated
		turn.Memory.Delete(MemoryKeyLastTaskUtterance)
		s.journal.Append(Entry{Agent: "supervisor", Action: "terminate", Reason: "tick limit reached"})
		return Decision{
			Type:    DecisionTerminate,
			Message: fmt.Sprintf("Stopping after %d processing steps; some tasks may be incomplete.", s.maxTicks),
		}
	}

	// 4. Completion check.
	if turn.State.Len() > 0 && turn.State.AllTerminal() {
		turn.Phase = PhaseTerminated
		s.journal.Append(Entry{Agent: "supervisor", Action: "terminate", Reason: "all tasks terminal"})
		return Decision{Type: DecisionTerminate, Message: completionSummary(turn.State)}
	}
	if turn.State.Len() == 0 {
		turn.Phase = PhaseTerminated
		return Decision{Type: DecisionTerminate, Message: "Nothing to do."}
	}

	// 5. Task selection and routing.
	turn.Phase = PhaseSelecting
	task := turn.State.SelectNext()
	if task == nil {
		return s.applyCircuitBreaker(turn)
	}
	turn.DeadlockRetries = 0
	turn.Phase = PhaseRouted
	s.journal.Append(Entry{
		Agent:   "supervisor",
		Action:  "route",
		Reason:  fmt.Sprintf("selected %s -> %s pipeline", task.ID, task.Kind),
		Pending: pendingDescriptions(turn.State),
	})
	return Decision{Type: DecisionRoute, Task: task, Pipeline: task.Kind}
}

// shouldAdmit decides whether this tick should extract new tasks. New tasks
// are admitted only on a fresh user turn, or when the utterance differs
// from the one that last produced tasks, and never while prior tasks are
// still runnable.
func (s *Supervisor) shouldAdmit(turn *Turn, utterance string, fresh bool) bool {
	if utterance == "" || s.extractor == nil {
		return false
	}
	if turn.State.HasRunnable() {
		return false
	}
	last := turn.Memory.GetString(MemoryKeyLastTaskUtterance)
	if fresh {
		return true
	}
	return utterance != last
}

// applyCircuitBreaker handles ticks where runnable tasks exist but none is
// selectable: bounded retries waiting on dependencies, then declaring
// deadlock and failing every stuck task so the turn terminates.
func (s *Supervisor) applyCircuitBreaker(turn *Turn) Decision {
	if !turn.State.HasRunnable() {
		turn.Phase = PhaseTerminated
		return Decision{Type: DecisionTerminate, Message: completionSummary(turn.State)}
	}

	turn.DeadlockRetries++
	if turn.DeadlockRetries <= s.deadlockLimit {
		s.debugLog("[supervisor] no selectable task, retry %d/%d", turn.DeadlockRetries, s.deadlockLimit)
		s.journal.Append(Entry{
			Agent:  "supervisor",
			Action: "wait",
			Reason: fmt.Sprintf("no selectable task, retry %d/%d", turn.DeadlockRetries, s.deadlockLimit),
		})
		return Decision{Type: DecisionWait}
	}

	failed := turn.State.FailAll("dependency deadlock: no runnable task made progress")
	turn.Phase = PhaseTerminated
	s.journal.Append(Entry{
		Agent:  "supervisor",
		Action: "terminate",
		Reason: fmt.Sprintf("deadlock circuit breaker tripped, failed %d stuck tasks", len(failed)),
	})
	return Decision{
		Type:    DecisionTerminate,
		Message: fmt.Sprintf("Some tasks were stuck waiting on each other and were cancelled (%s).", strings.Join(failed, ", ")),
	}
}

// collapseDuplicateAssistantTurns drops consecutive assistant messages with
// identical content, which LLM retries produce.
func collapseDuplicateAssistantTurns(turn *Turn) {
	if len(turn.Messages) < 2 {
		return
	}
	out := turn.Messages[:1]
	for _, m := range turn.Messages[1:] {
		prev := out[len(out)-1]
		if m.Role == RoleAssistant && prev.Role == RoleAssistant && m.Content == prev.Content {
			continue
		}
		out = append(out, m)
	}
	turn.Messages = out
}

// latestUserUtterance returns the content of the most recent user message.
func latestUserUtterance(turn *Turn) string {
	for i := len(turn.Messages) - 1; i >= 0; i-- {
		if turn.Messages[i].Role == RoleUser {
			return turn.Messages[i].Content
		}
	}
	return ""
}

// transcriptSummary renders recent messages for the extractor's context.
func transcriptSummary(turn *Turn) string {
	start := 0
	if len(turn.Messages) > 6 {
		start = len(turn.Messages) - 6
	}
	var b strings.Builder
	for _, m := range turn.Messages[start:] {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// pendingDescriptions lists descriptions of still-pending tasks for the
// journal.
func pendingDescriptions(state *taskstore.State) []string {
	var out []string
	for _, t := range state.Tasks() {
		if t.Status == models.TaskStatusPending {
			out = append(out, t.Description)
		}
	}
	return out
}

// completionSummary renders the terminal outcome of the turn's tasks.
func completionSummary(state *taskstore.State) string {
	completed := len(state.CompletedIDs())
	failed := len(state.FailedIDs())
	switch {
	case failed == 0 && completed > 0:
		return fmt.Sprintf("Done. Completed %d task(s).", completed)
	case completed == 0 && failed > 0:
		return fmt.Sprintf("All %d task(s) failed.", failed)
	case completed == 0 && failed == 0:
		return "Nothing to do."
	default:
		return fmt.Sprintf("Finished with %d completed and %d failed task(s).", completed, failed)
	}
}
