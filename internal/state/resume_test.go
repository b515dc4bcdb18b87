package state

import (
	"testing"
	"time"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

func TestFindInterrupted(t *testing.T) {
	db := openTestDB(t)

	if err := db.CreateConversation(&Conversation{ID: "done", StartedAt: time.Now().Add(-time.Hour), Status: "completed"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateConversation(&Conversation{ID: "older", UserID: "u1", StartedAt: time.Now().Add(-time.Minute), Status: "active"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateConversation(&Conversation{ID: "newer", UserID: "u1", StartedAt: time.Now(), Status: "active"}); err != nil {
		t.Fatal(err)
	}

	task := models.NewTask("task_0", "list companies", models.TaskKindRead, nil)
	task.Status = models.TaskStatusInProgress
	if err := db.SaveTask("newer", task); err != nil {
		t.Fatal(err)
	}

	interrupted, err := db.FindInterrupted()
	if err != nil {
		t.Fatal(err)
	}
	if len(interrupted) != 2 {
		t.Fatalf("found %d interrupted conversations, want 2", len(interrupted))
	}
	if interrupted[0].ID != "newer" {
		t.Errorf("most recent first: got %s", interrupted[0].ID)
	}
	if interrupted[0].OpenTasks != 1 || interrupted[0].TotalTasks != 1 {
		t.Errorf("task counts = %d/%d", interrupted[0].OpenTasks, interrupted[0].TotalTasks)
	}
}

func TestResumeConversationResetsInFlightTasks(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateConversation(&Conversation{ID: "conv-1", StartedAt: time.Now(), Status: "active"}); err != nil {
		t.Fatal(err)
	}

	done := models.NewTask("task_0", "list companies", models.TaskKindRead, nil)
	done.Status = models.TaskStatusCompleted
	done.Result = []any{map[string]any{"companyId": "comp_1"}}
	inflight := models.NewTask("task_1", "terminate contract cont_1", models.TaskKindWrite, []string{"task_0"})
	inflight.Status = models.TaskStatusInProgress
	if err := db.SaveTasks("conv-1", []*models.Task{done, inflight}); err != nil {
		t.Fatal(err)
	}

	st, err := db.ResumeConversation("conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Len() != 2 {
		t.Fatalf("restored %d tasks", st.Len())
	}
	if st.Get("task_0").Status != models.TaskStatusCompleted {
		t.Error("completed task must stay completed")
	}
	if st.Get("task_1").Status != models.TaskStatusPending {
		t.Error("in-flight task must return to pending")
	}
	// The restored graph must be immediately runnable.
	next := st.SelectNext()
	if next == nil || next.ID != "task_1" {
		t.Errorf("SelectNext = %v, want task_1", next)
	}
}

func TestMarkAbandoned(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateConversation(&Conversation{ID: "conv-1", StartedAt: time.Now(), Status: "active"}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkAbandoned("conv-1"); err != nil {
		t.Fatal(err)
	}
	interrupted, err := db.FindInterrupted()
	if err != nil {
		t.Fatal(err)
	}
	if len(interrupted) != 0 {
		t.Errorf("abandoned conversation still reported: %v", interrupted)
	}
}
