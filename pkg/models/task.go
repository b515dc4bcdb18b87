package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskKind selects the pipeline that executes a task.
type TaskKind string

const (
	// TaskKindRead routes the task to the read-operation pipeline.
	TaskKindRead TaskKind = "read"
	// TaskKindWrite routes the task to the write-operation pipeline.
	TaskKindWrite TaskKind = "write"
)

// Valid returns true if the kind is a known value.
func (k TaskKind) Valid() bool {
	return k == TaskKindRead || k == TaskKindWrite
}

// Task represents one unit of work extracted from a user request.
type Task struct {
	// ID is the conversation-scoped identifier (task_<n>).
	ID string `json:"id"`
	// Description is the natural-language statement of intent.
	Description string `json:"description"`
	// Kind routes the task to the read or write pipeline.
	Kind TaskKind `json:"kind"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the outcome payload on successful completion.
	Result any `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// Confidence scores how reliable the result is believed to be.
	Confidence float64 `json:"confidence"`
	// VerificationStatus records downstream verification of the result.
	VerificationStatus string `json:"verification_status,omitempty"`
	// Sources lists where the result's data came from.
	Sources []string `json:"sources,omitempty"`
	// Citations lists supporting references for the result.
	Citations []string `json:"citations,omitempty"`
	// ResolvedContext snapshots the context resolution output captured
	// when this task was processed. Retained for audit.
	ResolvedContext *GatheredContext `json:"resolved_context,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a Task with default status, confidence, and timestamps.
func NewTask(id, description string, kind TaskKind, deps []string) *Task {
	return &Task{
		ID:           id,
		Description:  description,
		Kind:         kind,
		Dependencies: deps,
		Status:       TaskStatusPending,
		Confidence:   0.5,
		Sources:      []string{},
		Citations:    []string{},
		CreatedAt:    time.Now(),
	}
}
