package state

import (
	"fmt"
	"time"

	"github.com/kestrel-ai/kestrel/internal/taskstore"
)

// InterruptedConversation describes a conversation left active by a previous
// process, detected on startup.
type InterruptedConversation struct {
	ID         string
	UserID     string
	CompanyID  string
	StartedAt  time.Time
	OpenTasks  int
	TotalTasks int
}

// FindInterrupted returns conversations still marked active, most recent
// first. A crashed or killed process leaves its conversation in this state.
func (db *DB) FindInterrupted() ([]InterruptedConversation, error) {
	rows, err := db.Query(`
		SELECT c.id, c.user_id, c.company_id, c.started_at,
			COALESCE(SUM(CASE WHEN t.status IN ('pending', 'in_progress') THEN 1 ELSE 0 END), 0),
			COUNT(t.id)
		FROM conversations c
		LEFT JOIN tasks t ON t.conversation_id = c.id
		WHERE c.status = 'active'
		GROUP BY c.id
		ORDER BY c.started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("find interrupted: %w", err)
	}
	defer rows.Close()

	var out []InterruptedConversation
	for rows.Next() {
		var ic InterruptedConversation
		var started string
		if err := rows.Scan(&ic.ID, &ic.UserID, &ic.CompanyID, &started, &ic.OpenTasks, &ic.TotalTasks); err != nil {
			return nil, fmt.Errorf("scan interrupted conversation: %w", err)
		}
		ic.StartedAt = parseTime(started)
		out = append(out, ic)
	}
	return out, rows.Err()
}

// ResumeConversation loads a persisted conversation's tasks into a fresh task
// state. In-progress tasks are reset to pending; their in-flight work died
// with the old process.
func (db *DB) ResumeConversation(id string) (*taskstore.State, error) {
	tasks, err := db.ListTasks(id)
	if err != nil {
		return nil, fmt.Errorf("resume conversation %s: %w", id, err)
	}
	state := taskstore.NewState()
	state.Restore(tasks)
	return state, nil
}

// MarkAbandoned closes out an interrupted conversation that will not be
// resumed.
func (db *DB) MarkAbandoned(id string) error {
	return db.UpdateConversationStatus(id, "abandoned")
}
