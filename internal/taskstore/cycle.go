package taskstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DetectCycle runs a depth-first search over the dependency relation using a
// recursion stack and returns the first cycle found as an ordered path of
// task IDs (closing ID repeated at the end). Returns nil if the graph is
// acyclic.
func DetectCycle(tasks []*models.Task) []string {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	// Color states: 0 = unvisited, 1 = on the recursion stack, 2 = done.
	state := make(map[string]int)

	var cycle []string
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		if state[id] == 2 {
			return false
		}
		if state[id] == 1 {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle = append(append([]string{}, path[start:]...), id)
			return true
		}

		state[id] = 1
		if t := byID[id]; t != nil {
			for _, depID := range t.Dependencies {
				if visit(depID, append(path, id)) {
					return true
				}
			}
		}
		state[id] = 2
		return false
	}

	for _, t := range tasks {
		if state[t.ID] == 0 {
			if visit(t.ID, nil) {
				return cycle
			}
		}
	}
	return nil
}

// FailCycles repeatedly detects cycles among non-terminal tasks and fails
// every task on each one. A cyclic task can never become selectable, so
// leaving it pending would hang the conversation forever. Returns the IDs of
// all tasks failed. Failed tasks keep their dependency edges but drop out of
// detection, which is what lets the loop terminate.
func (s *State) FailCycles() []string {
	var failed []string
	for {
		var live []*models.Task
		for _, t := range s.Tasks() {
			if !t.Status.Terminal() {
				live = append(live, t)
			}
		}
		cycle := DetectCycle(live)
		if len(cycle) == 0 {
			return failed
		}
		path := strings.Join(cycle, " -> ")
		seen := make(map[string]bool)
		for _, id := range cycle {
			if seen[id] {
				continue
			}
			seen[id] = true
			_ = s.RecordFailure(id, fmt.Sprintf("%v: %s", ErrCycleDetected, path))
			failed = append(failed, id)
		}
	}
}
