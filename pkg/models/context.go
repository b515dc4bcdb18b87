package models

// ParamType is the primitive type a declared parameter expects.
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeNumber ParamType = "number"
	ParamTypeBool   ParamType = "boolean"
	ParamTypeArray  ParamType = "array"
)

// ParamSpec describes one declared parameter of an operation.
type ParamSpec struct {
	// Name is the parameter name as it appears in operation templates.
	Name string `json:"name"`
	// Type is the primitive type of the parameter.
	Type ParamType `json:"type"`
}

// OperationSchema declares the required and optional parameters of the
// operation a task will generate.
type OperationSchema struct {
	// Operation is the name of the target operation, if known.
	Operation string `json:"operation,omitempty"`
	// Required lists parameters that must be resolved before execution.
	Required []ParamSpec `json:"required"`
	// Optional lists parameters that improve the operation when present.
	Optional []ParamSpec `json:"optional,omitempty"`
}

// ParamNames returns the names of all required and optional parameters.
func (s OperationSchema) ParamNames() []string {
	names := make([]string, 0, len(s.Required)+len(s.Optional))
	for _, p := range s.Required {
		names = append(names, p.Name)
	}
	for _, p := range s.Optional {
		names = append(names, p.Name)
	}
	return names
}

// IsRequired returns true if the named parameter is declared required.
func (s OperationSchema) IsRequired(name string) bool {
	for _, p := range s.Required {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ResolutionSource identifies which context supplied a parameter value.
type ResolutionSource string

const (
	// SourceStatic means the value was parsed out of the user utterance.
	SourceStatic ResolutionSource = "static_request"
	// SourceUser means the value came from the authenticated identity.
	SourceUser ResolutionSource = "user_context"
	// SourceDynamic means the value came directly from a prior task result.
	SourceDynamic ResolutionSource = "dynamic_result"
	// SourceDynamicList means the value was derived from a list-shaped
	// prior task result (default pick of the first element).
	SourceDynamicList ResolutionSource = "dynamic_list"
)

// ResolutionStrategy records how one declared parameter was (or was not)
// resolved: contributing sources, confidence, and a fallback placeholder
// when nothing supplied a value.
type ResolutionStrategy struct {
	Parameter  string             `json:"parameter"`
	Sources    []ResolutionSource `json:"sources"`
	Value      any                `json:"value,omitempty"`
	Confidence float64            `json:"confidence"`
	Required   bool               `json:"required"`
	// FallbackPlaceholder is set for required parameters with no source;
	// downstream substitution leaves it visibly unresolved.
	FallbackPlaceholder string `json:"fallback_placeholder,omitempty"`
}

// Resolved returns true if at least one source contributed a value.
func (r ResolutionStrategy) Resolved() bool {
	return len(r.Sources) > 0
}

// SuggestionKind classifies a workflow suggestion.
type SuggestionKind string

const (
	// SuggestionPrerequisite proposes running a lookup task first.
	SuggestionPrerequisite SuggestionKind = "prerequisite_task"
	// SuggestionUnsupported explains that no operation can supply the value.
	SuggestionUnsupported SuggestionKind = "unsupported"
)

// WorkflowSuggestion is a structured hint emitted when a required parameter
// cannot be resolved from any source.
type WorkflowSuggestion struct {
	// Kind says whether this proposes a prerequisite task or explains an
	// unsupported request.
	Kind SuggestionKind `json:"kind"`
	// Parameter is the unresolved parameter this suggestion addresses.
	Parameter string `json:"parameter"`
	// Description is the human-readable suggestion text.
	Description string `json:"description"`
	// SuggestedTask is a description for the prerequisite task, if any.
	SuggestedTask string `json:"suggested_task,omitempty"`
}

// ContextAnalysis is the derived gap report over a set of strategies.
type ContextAnalysis struct {
	HasAllRequiredParams  bool                 `json:"has_all_required_params"`
	MissingRequiredParams []string             `json:"missing_required_params"`
	WorkflowSuggestions   []WorkflowSuggestion `json:"workflow_suggestions"`
}

// GatheredContext is one resolution snapshot for one task.
type GatheredContext struct {
	// TaskID is the task this snapshot was produced for.
	TaskID string `json:"task_id"`
	// StaticContext holds values parsed from the current utterance.
	StaticContext map[string]any `json:"static_context"`
	// DynamicContext holds values harvested from completed task results.
	DynamicContext map[string]any `json:"dynamic_context"`
	// UserContext holds values derived from the authenticated identity.
	UserContext map[string]any `json:"user_context"`
	// TypeContext is the declared parameter schema of the target operation.
	TypeContext OperationSchema `json:"type_context"`
	// ResolutionStrategies has one entry per declared parameter.
	ResolutionStrategies []ResolutionStrategy `json:"resolution_strategies"`
	// ContextAnalysis is the gap report derived from the strategies.
	ContextAnalysis ContextAnalysis `json:"context_analysis"`
}

// Strategy returns the strategy for the named parameter, or nil.
func (g *GatheredContext) Strategy(param string) *ResolutionStrategy {
	for i := range g.ResolutionStrategies {
		if g.ResolutionStrategies[i].Parameter == param {
			return &g.ResolutionStrategies[i]
		}
	}
	return nil
}
