package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/prompts"
	"github.com/kestrel-ai/kestrel/internal/resolve"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Tool executes a generated operation against the external API and returns
// its result payload.
type Tool interface {
	// Name identifies the tool in logs and task sources.
	Name() string
	// Execute runs the operation string.
	Execute(ctx context.Context, operation string) (any, error)
}

// ToolFunc adapts a function into a Tool.
type ToolFunc struct {
	ToolName string
	Fn       func(ctx context.Context, operation string) (any, error)
}

// Name implements Tool.
func (t ToolFunc) Name() string { return t.ToolName }

// Execute implements Tool.
func (t ToolFunc) Execute(ctx context.Context, operation string) (any, error) {
	return t.Fn(ctx, operation)
}

// Pipeline drives one task from selection to a terminal state. The same run
// path serves reads and writes; the write pipeline additionally refuses
// execution while required parameters are unresolved.
type Pipeline struct {
	kind     models.TaskKind
	llm      llm.Completer
	library  *prompts.Library
	resolver *resolve.Engine
	tool     Tool
	debugLog func(format string, args ...interface{})
}

// New creates a pipeline for the given kind.
func New(kind models.TaskKind, completer llm.Completer, library *prompts.Library, resolver *resolve.Engine, tool Tool) *Pipeline {
	if library == nil {
		library = prompts.NewLibrary("")
	}
	return &Pipeline{
		kind:     kind,
		llm:      completer,
		library:  library,
		resolver: resolver,
		tool:     tool,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (p *Pipeline) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		p.debugLog = fn
	}
}

// Kind returns the task kind this pipeline serves.
func (p *Pipeline) Kind() models.TaskKind {
	return p.kind
}

// RunResult reports the outcome of one pipeline run for the conversation.
type RunResult struct {
	// Operation is the substituted operation that was (or would be) run.
	Operation string
	// Message is the user-facing summary of the outcome.
	Message string
	// Suggestions carries workflow suggestions surfaced by gap analysis.
	Suggestions []models.WorkflowSuggestion
}

// Run processes one selected task to a terminal state. Errors from the LLM
// and the tool are recorded as task failures, never propagated: the
// supervisor continues to the next selectable task regardless.
func (p *Pipeline) Run(ctx context.Context, task *models.Task, utterance string, state *taskstore.State, claims models.Identity, mem *memory.Memory) RunResult {
	schema := InferSchema(task)
	gc := p.resolver.Resolve(ctx, task, utterance, state, claims, mem, schema)

	if p.kind == models.TaskKindWrite && !gc.ContextAnalysis.HasAllRequiredParams {
		missing := strings.Join(gc.ContextAnalysis.MissingRequiredParams, ", ")
		msg := fmt.Sprintf("cannot run write operation %s: unresolved required parameters: %s", schema.Operation, missing)
		_ = state.RecordFailure(task.ID, msg)
		return RunResult{Message: msg, Suggestions: gc.ContextAnalysis.WorkflowSuggestions}
	}

	template, err := p.generateOperation(ctx, task, schema, gc)
	if err != nil {
		msg := fmt.Sprintf("operation generation failed: %v", err)
		_ = state.RecordFailure(task.ID, msg)
		return RunResult{Message: msg, Suggestions: gc.ContextAnalysis.WorkflowSuggestions}
	}

	operation := Substitute(template, gc)
	p.debugLog("[pipeline.%s] task %s operation: %s", p.kind, task.ID, operation)

	result, err := p.tool.Execute(ctx, operation)
	if err != nil {
		msg := fmt.Sprintf("execution failed: %v", err)
		_ = state.RecordFailure(task.ID, msg)
		return RunResult{Operation: operation, Message: msg, Suggestions: gc.ContextAnalysis.WorkflowSuggestions}
	}

	task.Sources = append(task.Sources, p.tool.Name())
	_ = state.RecordResult(task.ID, result)
	return RunResult{
		Operation:   operation,
		Message:     fmt.Sprintf("completed %s", task.Description),
		Suggestions: gc.ContextAnalysis.WorkflowSuggestions,
	}
}

// generateOperation asks the LLM for an operation template with
// placeholders. Without a completer (tests, degraded mode) it falls back to
// a deterministic template derived from the schema.
func (p *Pipeline) generateOperation(ctx context.Context, task *models.Task, schema models.OperationSchema, gc *models.GatheredContext) (string, error) {
	if p.llm == nil {
		return fallbackTemplate(schema), nil
	}

	resolved := make(map[string]any)
	for _, st := range gc.ResolutionStrategies {
		if st.Resolved() {
			resolved[st.Parameter] = st.Value
		}
	}
	resolvedJSON, _ := json.Marshal(resolved)

	user := fmt.Sprintf("Task: %s\nOperation: %s\nParameters with resolved values available as placeholders: %s",
		task.Description, schema.Operation, resolvedJSON)
	template, err := p.llm.Complete(ctx, p.library.Get(prompts.OperationGeneration), user)
	if err != nil {
		return "", err
	}
	template = strings.TrimSpace(template)
	if template == "" {
		return fallbackTemplate(schema), nil
	}
	return template, nil
}

// fallbackTemplate renders "op(a: {{a}}, b: {{b}})" from the schema.
func fallbackTemplate(schema models.OperationSchema) string {
	op := schema.Operation
	if op == "" {
		op = "query"
	}
	var args []string
	for _, name := range schema.ParamNames() {
		args = append(args, fmt.Sprintf("%s: {{%s}}", name, name))
	}
	return fmt.Sprintf("%s(%s)", op, strings.Join(args, ", "))
}
