package state

import (
	"io"

	"github.com/kestrel-ai/kestrel/internal/supervisor"
	"github.com/kestrel-ai/kestrel/internal/taskstore"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

// ConversationStore handles conversation-record persistence.
type ConversationStore interface {
	CreateConversation(c *Conversation) error
	UpdateConversationStatus(id, status string) error
	FindInterrupted() ([]InterruptedConversation, error)
	ResumeConversation(id string) (*taskstore.State, error)
}

// SnapshotStore handles task snapshot and journal persistence.
type SnapshotStore interface {
	SaveTask(conversationID string, t *models.Task) error
	SaveTasks(conversationID string, tasks []*models.Task) error
	AppendJournal(conversationID string, e supervisor.Entry) error
}

// Migrator applies schema migrations. Separated so callers can depend on
// migration capability alone.
type Migrator interface {
	Migrate() error
}

// Store is the full persistence surface the chat runtime uses. Defined as an
// interface so the runtime can run against any backend.
type Store interface {
	io.Closer
	Migrator
	ConversationStore
	SnapshotStore
}

var (
	_ Store         = (*DB)(nil)
	_ Migrator      = (*DB)(nil)
	_ SnapshotStore = (*DB)(nil)
)
