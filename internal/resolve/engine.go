// Package resolve assembles parameter values for a task from static text
// extraction, prior task results, and the authenticated user context,
// producing confidence-scored resolution strategies and a gap report.
package resolve

import (
	"context"

	"github.com/kestrel-ai/kestrel/internal/identity"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// MemoryKeyLastContext is the conversation-memory key holding the most
// recent resolution snapshot.
const MemoryKeyLastContext = "resolve.last_context"

// Engine produces GatheredContext snapshots. It never returns an error: any
// internal failure degrades to a partial context plus a gap report, which is
// strictly more useful downstream than an aborted task.
type Engine struct {
	identity *identity.Resolver
	history  *memory.ContextHistory
	debugLog func(format string, args ...interface{})
}

// New creates an engine. The identity resolver may be nil, in which case
// user context degrades to the raw auth claims.
func New(res *identity.Resolver, history *memory.ContextHistory) *Engine {
	if history == nil {
		history = memory.NewContextHistory(0)
	}
	return &Engine{
		identity: res,
		history:  history,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (e *Engine) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		e.debugLog = fn
	}
}

// History returns the bounded rolling history of snapshots.
func (e *Engine) History() *memory.ContextHistory {
	return e.history
}

// Resolve assembles the context for one task-processing attempt. The result
// is attached to the task for audit, stored in conversation memory for the
// next task's lookup, and appended to the rolling history.
func (e *Engine) Resolve(ctx context.Context, task *models.Task, utterance string, state *taskstore.State, claims models.Identity, mem *memory.Memory, schema models.OperationSchema) *models.GatheredContext {
	gc := &models.GatheredContext{
		TaskID:      task.ID,
		TypeContext: schema,
	}

	gc.StaticContext = extractStatic(utterance, schema)
	e.debugLog("[resolve] static context for %s: %v", task.ID, gc.StaticContext)

	harvest := newDynamicHarvest()
	if state != nil {
		harvest = extractDynamic(state.CompletedContext())
	}
	gc.DynamicContext = harvest.merged()
	e.debugLog("[resolve] dynamic context for %s: %d direct, %d list-derived", task.ID, len(harvest.direct), len(harvest.listDerived))

	resolved := claims
	if e.identity != nil {
		resolved = e.identity.Resolve(ctx, claims)
	}
	gc.UserContext = userContext(resolved)

	gc.ResolutionStrategies = synthesizeStrategies(schema, gc.StaticContext, gc.UserContext, harvest)
	applyCompoundRules(gc, schema)
	gc.ContextAnalysis = analyzeGaps(gc, schema)

	if state != nil {
		state.AttachContext(task.ID, gc)
	}
	if mem != nil {
		mem.Set(MemoryKeyLastContext, gc)
	}
	e.history.Append(gc)

	return gc
}
