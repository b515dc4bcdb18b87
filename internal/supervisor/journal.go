package supervisor

import (
	"sync"
	"time"
)

// Entry is one routing decision in the audit trail. The journal is written
// on every decision but never consulted for control flow.
type Entry struct {
	// Time is when the decision was made.
	Time time.Time `json:"time"`
	// Agent names the deciding component.
	Agent string `json:"agent"`
	// Action is the decision taken (admit, route, wait, terminate, ...).
	Action string `json:"action"`
	// Reason explains the decision.
	Reason string `json:"reason"`
	// Pending lists descriptions of tasks still pending at decision time.
	Pending []string `json:"pending,omitempty"`
}

// Journal is the in-memory decision audit trail for one conversation.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records a decision, stamping it with the current time.
func (j *Journal) Append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	j.entries = append(j.entries, e)
}

// Entries returns a copy of all recorded decisions, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of recorded decisions.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
