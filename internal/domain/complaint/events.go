package complaint

import (
	"context"
	"time"

	"hostelcare/internal/domain/conversation"
	"hostelcare/internal/domain/user"
)

type EventKind string

const (
	EventCreated    EventKind = "created"
	EventTransition EventKind = "transition"
	EventMessage    EventKind = "message"
)

type FactKind string

const (
	FactStatusChanged     FactKind = "status_changed"
	FactAssignmentChanged FactKind = "assignment_changed"
)

// Fact is one field change inside an Event. An empty assignee means none.
type Fact struct {
	Kind         FactKind `json:"kind"`
	FromStatus   Status   `json:"from_status,omitempty"`
	ToStatus     Status   `json:"to_status,omitempty"`
	FromAssignee string   `json:"from_assignee,omitempty"`
	ToAssignee   string   `json:"to_assignee,omitempty"`
}

// Event is emitted once per accepted intent, after the write succeeded.
// Before is nil for EventCreated.
type Event struct {
	ID          string              `json:"id"`
	Kind        EventKind           `json:"kind"`
	ComplaintID string              `json:"complaint_id"`
	Actor       user.Actor          `json:"actor"`
	Before      *Complaint          `json:"before,omitempty"`
	After       *Complaint          `json:"after"`
	Facts       []Fact              `json:"facts,omitempty"`
	Remark      *conversation.Entry `json:"remark,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

func (e *Event) Fact(kind FactKind) (Fact, bool) {
	for _, f := range e.Facts {
		if f.Kind == kind {
			return f, true
		}
	}
	return Fact{}, false
}

// EventSink receives events without blocking the caller.
type EventSink interface {
	Dispatch(ctx context.Context, ev *Event)
}
