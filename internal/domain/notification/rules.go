package notification

import (
	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/user"
)

type Selector string

const (
	SelectReporter Selector = "reporter"
	SelectAssignee Selector = "assignee"
	SelectWardens  Selector = "wardens"
)

// Target is one (recipient selector, type) pair produced by the rule table.
type Target struct {
	Selector Selector
	Type     Type
}

// Recipient is a Target resolved to a concrete account.
type Recipient struct {
	ID       string
	Selector Selector
	Type     Type
}

// Rules maps an event to its targets. Assignment facts come before status
// facts, so when both hit the same account the assignment notice wins.
func Rules(ev *complaint.Event) []Target {
	role := ev.Actor.Role

	switch ev.Kind {
	case complaint.EventCreated:
		if role == user.RoleStudent {
			return []Target{{SelectWardens, TypeComplaintCreated}}
		}
		return nil

	case complaint.EventMessage:
		switch role {
		case user.RoleWarden:
			return []Target{{SelectReporter, TypeMessageReceived}, {SelectAssignee, TypeMessageReceived}}
		case user.RoleStudent:
			return []Target{{SelectAssignee, TypeMessageReceived}}
		case user.RoleStaff:
			return []Target{{SelectReporter, TypeMessageReceived}}
		}
		return nil
	}

	var targets []Target
	if f, ok := ev.Fact(complaint.FactAssignmentChanged); ok {
		if role == user.RoleWarden && f.ToAssignee != "" {
			targets = append(targets, Target{SelectAssignee, TypeComplaintAssigned})
		}
	}
	if f, ok := ev.Fact(complaint.FactStatusChanged); ok {
		targets = append(targets, statusRules(role, f)...)
	}
	return targets
}

func statusRules(role user.Role, f complaint.Fact) []Target {
	switch role {
	case user.RoleWarden:
		if f.FromStatus == complaint.StatusPending && f.ToStatus == complaint.StatusInProgress {
			return []Target{{SelectReporter, TypeComplaintUpdated}}
		}
		return []Target{{SelectReporter, TypeStatusChangedByWarden}, {SelectAssignee, TypeStatusChangedByWarden}}
	case user.RoleStaff:
		if f.ToStatus == complaint.StatusResolved {
			return []Target{{SelectReporter, TypeComplaintResolved}, {SelectWardens, TypeComplaintResolved}}
		}
	}
	return nil
}

// Expand resolves targets against the event's after snapshot. The actor is
// never a recipient and each account receives at most one notification per
// event (first target wins).
func Expand(ev *complaint.Event, targets []Target, wardenIDs []string) []Recipient {
	seen := map[string]bool{ev.Actor.ID: true}
	var out []Recipient

	add := func(id string, t Target) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Recipient{ID: id, Selector: t.Selector, Type: t.Type})
	}

	for _, t := range targets {
		switch t.Selector {
		case SelectReporter:
			add(ev.After.ReporterID, t)
		case SelectAssignee:
			add(ev.After.Assignee(), t)
		case SelectWardens:
			for _, id := range wardenIDs {
				add(id, t)
			}
		}
	}
	return out
}

func needsWardens(targets []Target) bool {
	for _, t := range targets {
		if t.Selector == SelectWardens {
			return true
		}
	}
	return false
}
