package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-ai/kestrel/internal/supervisor"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Conversation is one persisted conversation record.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
}

// CreateConversation inserts a conversation record.
func (db *DB) CreateConversation(c *Conversation) error {
	_, err := db.Exec(`
		INSERT INTO conversations (id, user_id, company_id, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.CompanyID, formatTime(c.StartedAt), c.Status)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// UpdateConversationStatus sets the status of a conversation.
func (db *DB) UpdateConversationStatus(id, status string) error {
	_, err := db.Exec("UPDATE conversations SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update conversation status: %w", err)
	}
	return nil
}

// SaveTask upserts a task snapshot for a conversation.
func (db *DB) SaveTask(conversationID string, t *models.Task) error {
	deps, _ := json.Marshal(t.Dependencies)
	var result []byte
	if t.Result != nil {
		result, _ = json.Marshal(t.Result)
	}
	_, err := db.Exec(`
		INSERT INTO tasks (id, conversation_id, description, kind, status, dependencies, result, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id, id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, t.ID, conversationID, t.Description, string(t.Kind), string(t.Status),
		string(deps), nullableString(string(result)), nullableString(t.Error),
		formatTime(t.CreatedAt), formatTimePtr(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// SaveTasks upserts every task in the slice.
func (db *DB) SaveTasks(conversationID string, tasks []*models.Task) error {
	for _, t := range tasks {
		if err := db.SaveTask(conversationID, t); err != nil {
			return err
		}
	}
	return nil
}

// ListTasks returns the persisted task snapshots for a conversation in
// creation order.
func (db *DB) ListTasks(conversationID string) ([]*models.Task, error) {
	// Ties on created_at break on the numeric ID suffix; a plain id sort
	// would put task_10 before task_2.
	rows, err := db.Query(`
		SELECT id, description, kind, status, dependencies, result, error, created_at, completed_at
		FROM tasks WHERE conversation_id = ? ORDER BY created_at, CAST(substr(id, 6) AS INTEGER)
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var t models.Task
		var kind, status string
		var deps, result, errMsg, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Description, &kind, &status, &deps, &result, &errMsg, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Kind = models.TaskKind(kind)
		t.Status = models.TaskStatus(status)
		if deps.Valid && deps.String != "" {
			_ = json.Unmarshal([]byte(deps.String), &t.Dependencies)
		}
		if result.Valid && result.String != "" {
			var payload any
			if err := json.Unmarshal([]byte(result.String), &payload); err == nil {
				t.Result = payload
			}
		}
		if errMsg.Valid {
			t.Error = errMsg.String
		}
		t.CreatedAt = parseTime(createdAt)
		if completedAt.Valid && completedAt.String != "" {
			ts := parseTime(completedAt.String)
			t.CompletedAt = &ts
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// AppendJournal persists one decision journal entry.
func (db *DB) AppendJournal(conversationID string, e supervisor.Entry) error {
	pending, _ := json.Marshal(e.Pending)
	_, err := db.Exec(`
		INSERT INTO journal (conversation_id, time, agent, action, reason, pending)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conversationID, formatTime(e.Time), e.Agent, e.Action, e.Reason, string(pending))
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// JournalEntries returns the persisted journal for a conversation, oldest
// first.
func (db *DB) JournalEntries(conversationID string) ([]supervisor.Entry, error) {
	rows, err := db.Query(`
		SELECT time, agent, action, reason, pending
		FROM journal WHERE conversation_id = ? ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("journal entries: %w", err)
	}
	defer rows.Close()

	var entries []supervisor.Entry
	for rows.Next() {
		var e supervisor.Entry
		var ts string
		var reason, pending sql.NullString
		if err := rows.Scan(&ts, &e.Agent, &e.Action, &reason, &pending); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Time = parseTime(ts)
		if reason.Valid {
			e.Reason = reason.String
		}
		if pending.Valid && pending.String != "" {
			_ = json.Unmarshal([]byte(pending.String), &e.Pending)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// timeLayout is fixed-width so stored TEXT timestamps compare in
// chronological order. RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
