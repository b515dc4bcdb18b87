package extract

import (
	"regexp"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// The heuristic splitter is the deterministic fallback when the LLM returns
// nothing usable. It segments the utterance on sentence boundaries and
// sequencing conjunctions and infers each segment's kind from keywords.

// sequencers split an utterance into ordered steps. A segment introduced by
// one of these depends on the previous segment.
var sequencers = regexp.MustCompile(`(?i)\s*(?:,\s*)?\b(?:and then|then|after that|afterwards)\b\s*`)

// sentenceSplit separates independent statements.
var sentenceSplit = regexp.MustCompile(`[.;\n]+`)

// conjunctionSplit separates parallel clauses inside one statement.
var conjunctionSplit = regexp.MustCompile(`(?i)\s+\band\b\s+`)

// writePattern marks a segment as a write operation.
var writePattern = regexp.MustCompile(`(?i)\b(create|add|update|change|set|modify|delete|remove|cancel|terminate|pay|register|invite|assign|amend|archive)\b`)

// SplitHeuristic segments an utterance into tasks with batch-local IDs.
// Ordered segments (joined by "then") are chained via dependencies;
// parallel segments are independent. Always returns at least one task for a
// non-empty utterance.
func SplitHeuristic(utterance string) []*models.Task {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	var tasks []*models.Task
	addTask := func(text string, dependsOnPrevious bool) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		var deps []string
		if dependsOnPrevious && len(tasks) > 0 {
			deps = []string{tasks[len(tasks)-1].ID}
		}
		t := models.NewTask(taskstore.TaskID(len(tasks)), text, inferKind(text), deps)
		tasks = append(tasks, t)
	}

	for _, sentence := range sentenceSplit.Split(utterance, -1) {
		steps := sequencers.Split(sentence, -1)
		for stepIdx, step := range steps {
			chained := stepIdx > 0
			clauses := conjunctionSplit.Split(step, -1)
			if tooShortToSplit(clauses) {
				addTask(step, chained)
				continue
			}
			for _, clause := range clauses {
				addTask(clause, chained)
				// Inside an ordered step, sibling clauses keep chaining so
				// the whole step stays sequenced after the previous one.
				chained = stepIdx > 0
			}
		}
	}

	if len(tasks) == 0 {
		addTask(utterance, false)
	}
	return tasks
}

// tooShortToSplit guards against splitting "terms and conditions"-style
// conjunctions that are not separate operations.
func tooShortToSplit(clauses []string) bool {
	if len(clauses) < 2 {
		return true
	}
	for _, c := range clauses {
		if len(strings.Fields(strings.TrimSpace(c))) < 3 {
			return true
		}
	}
	return false
}

// inferKind classifies a segment as read or write from its keywords.
func inferKind(text string) models.TaskKind {
	if writePattern.MatchString(text) {
		return models.TaskKindWrite
	}
	return models.TaskKindRead
}
