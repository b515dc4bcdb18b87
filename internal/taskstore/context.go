package taskstore

import (
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// CompletedContext aggregates the result payloads of completed tasks for the
// context resolution engine.
type CompletedContext struct {
	// Results maps completed task ID to its result payload.
	Results map[string]any
	// Descriptions maps completed task ID to its description.
	Descriptions map[string]string
	// UserInfo is the result of the first completed task whose description
	// looks like an identity lookup, if any.
	UserInfo any
	// UserInfoTaskID is the task that supplied UserInfo.
	UserInfoTaskID string
}

// identityHints are description fragments that mark a task as an identity
// lookup for the UserInfo heuristic pick.
var identityHints = []string{"who am i", "my profile", "my account", "current user", "user info", "my details"}

// CompletedContext returns the flat lookup of completed task results plus a
// heuristic user-info pick.
func (s *State) CompletedContext() CompletedContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cc := CompletedContext{
		Results:      make(map[string]any),
		Descriptions: make(map[string]string),
	}
	for _, t := range s.tasks {
		if t.Status != models.TaskStatusCompleted || t.Result == nil {
			continue
		}
		cc.Results[t.ID] = t.Result
		cc.Descriptions[t.ID] = t.Description
		if cc.UserInfo == nil && looksLikeIdentityLookup(t.Description) {
			cc.UserInfo = t.Result
			cc.UserInfoTaskID = t.ID
		}
	}
	return cc
}

func looksLikeIdentityLookup(description string) bool {
	d := strings.ToLower(description)
	for _, hint := range identityHints {
		if strings.Contains(d, hint) {
			return true
		}
	}
	return false
}
