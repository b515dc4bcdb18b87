// Package extract turns a user utterance into a batch of tasks, using an
// LLM with a deterministic heuristic fallback. Extraction never fails: a
// malformed or empty LLM response degrades to the heuristic splitter.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/prompts"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// extractedTask is the JSON structure the model returns for a single task.
type extractedTask struct {
	Description    string   `json:"description"`
	Kind           string   `json:"kind"`
	TargetPipeline string   `json:"target_pipeline"`
	Dependencies   []string `json:"dependencies"`
}

// Extractor produces task batches with batch-local IDs (task_0..task_n).
// The task store renumbers them on insertion.
type Extractor struct {
	llm     llm.Completer
	library *prompts.Library
}

// New creates an extractor. A nil completer makes every extraction take the
// heuristic path, which tests rely on.
func New(completer llm.Completer, library *prompts.Library) *Extractor {
	if library == nil {
		library = prompts.NewLibrary("")
	}
	return &Extractor{llm: completer, library: library}
}

// Extract returns the task batch for an utterance. conversationContext is a
// summary of prior turns handed to the model for disambiguation.
func (e *Extractor) Extract(ctx context.Context, utterance, conversationContext string) []*models.Task {
	if e.llm != nil {
		tasks, err := e.extractLLM(ctx, utterance, conversationContext)
		if err == nil {
			return tasks
		}
		log.Printf("[extract] LLM extraction failed, falling back to heuristic: %v", err)
	}
	return SplitHeuristic(utterance)
}

func (e *Extractor) extractLLM(ctx context.Context, utterance, conversationContext string) ([]*models.Task, error) {
	user := utterance
	if conversationContext != "" {
		user = fmt.Sprintf("Conversation so far:\n%s\n\nRequest:\n%s", conversationContext, utterance)
	}
	response, err := e.llm.Complete(ctx, e.library.Get(prompts.TaskExtraction), user)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	return ParseResponse(response)
}

// ParseResponse parses the model's JSON array into Task objects with
// batch-local IDs. Dependencies may be given as "task_<i>" or a bare index;
// both normalize to the batch-local ID form.
func ParseResponse(response string) ([]*models.Task, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 300 {
			preview = preview[:300] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array found in response (%d chars): %q", len(response), preview)
	}

	var extracted []extractedTask
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &extracted); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if len(extracted) == 0 {
		return nil, fmt.Errorf("empty task list returned")
	}

	tasks := make([]*models.Task, 0, len(extracted))
	for i, et := range extracted {
		if strings.TrimSpace(et.Description) == "" {
			return nil, fmt.Errorf("task %d has empty description", i)
		}
		kind := inferKindField(et.Kind, et.TargetPipeline)
		deps, err := normalizeDeps(et.Dependencies, i)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, models.NewTask(taskstore.TaskID(i), strings.TrimSpace(et.Description), kind, deps))
	}

	if cycle := taskstore.DetectCycle(tasks); len(cycle) > 0 {
		return nil, fmt.Errorf("extracted tasks contain a dependency cycle: %s", strings.Join(cycle, " -> "))
	}
	return tasks, nil
}

// inferKindField maps the model's kind/pipeline fields onto a TaskKind,
// defaulting to read for anything unrecognized.
func inferKindField(kind, pipeline string) models.TaskKind {
	for _, v := range []string{kind, pipeline} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "write", "mutation", "mutate":
			return models.TaskKindWrite
		case "read", "query":
			return models.TaskKindRead
		}
	}
	return models.TaskKindRead
}

// normalizeDeps converts dependency references to batch-local task IDs and
// rejects forward or self references.
func normalizeDeps(deps []string, selfIndex int) ([]string, error) {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		idx := -1
		if n, err := strconv.Atoi(d); err == nil {
			idx = n
		} else if strings.HasPrefix(d, "task_") {
			if n, err := strconv.Atoi(strings.TrimPrefix(d, "task_")); err == nil {
				idx = n
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("unrecognized dependency reference %q", d)
		}
		if idx >= selfIndex {
			return nil, fmt.Errorf("dependency %q does not reference an earlier task", d)
		}
		out = append(out, taskstore.TaskID(idx))
	}
	return out, nil
}
