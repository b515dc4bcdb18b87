package resolve

import (
	"fmt"
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// analyzeGaps derives the gap report from the synthesized strategies. For
// each unresolved required parameter it emits one workflow suggestion:
// either a prerequisite lookup task, or an explicit unsupported-operation
// explanation when the user supplied a locator no operation accepts.
func analyzeGaps(gc *models.GatheredContext, schema models.OperationSchema) models.ContextAnalysis {
	analysis := models.ContextAnalysis{
		HasAllRequiredParams:  true,
		MissingRequiredParams: []string{},
		WorkflowSuggestions:   []models.WorkflowSuggestion{},
	}

	for _, st := range gc.ResolutionStrategies {
		if !st.Required || st.Resolved() {
			continue
		}
		analysis.HasAllRequiredParams = false
		analysis.MissingRequiredParams = append(analysis.MissingRequiredParams, st.Parameter)
		analysis.WorkflowSuggestions = append(analysis.WorkflowSuggestions, suggestFor(st.Parameter, gc))
	}
	return analysis
}

// suggestFor builds the workflow suggestion for one missing parameter.
func suggestFor(param string, gc *models.GatheredContext) models.WorkflowSuggestion {
	entity := entityForParam(param)

	// An email is a locator the API cannot look entities up by. Surfacing
	// that beats generating an operation that is guaranteed to fail.
	if email := suppliedEmail(gc.StaticContext); email != "" && isEntityID(param) {
		return models.WorkflowSuggestion{
			Kind:      models.SuggestionUnsupported,
			Parameter: param,
			Description: fmt.Sprintf(
				"cannot resolve %s from the email %s: no operation supports email-based %s lookup; ask the user for the %s directly or list %ss first",
				param, email, entity, param, entity),
		}
	}

	return models.WorkflowSuggestion{
		Kind:      models.SuggestionPrerequisite,
		Parameter: param,
		Description: fmt.Sprintf(
			"required parameter %s is unresolved; run a lookup task first to discover it",
			param),
		SuggestedTask: fmt.Sprintf("list %ss to find the relevant %s", entity, param),
	}
}

// suppliedEmail returns an email found in the utterance, whether or not a
// declared parameter asked for one.
func suppliedEmail(static map[string]any) string {
	for _, key := range []string{"email", "_email"} {
		if v, ok := static[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// isEntityID reports whether the parameter names an entity identifier.
func isEntityID(param string) bool {
	n := strings.ToLower(param)
	return strings.HasSuffix(n, "id") && n != "id"
}

// entityForParam derives the entity noun from a parameter name
// (employeeId -> employee).
func entityForParam(param string) string {
	n := param
	for _, suffix := range []string{"Id", "ID", "_id", "id"} {
		if strings.HasSuffix(n, suffix) && len(n) > len(suffix) {
			n = strings.TrimSuffix(n, suffix)
			break
		}
	}
	n = strings.TrimSuffix(n, "_")
	if n == "" {
		return "record"
	}
	return strings.ToLower(n)
}
