package complaint

import (
	"encoding/json"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/apperr"
	"hostelcare/internal/realtime"
)

type Action string

const (
	ActionCreate       Action = "create complaint"
	ActionSetStatus    Action = "set status"
	ActionAssign       Action = "assign complaint"
	ActionAppendRemark Action = "append remark"
	ActionView         Action = "view complaint"
)

// check returns an empty reason when actor may act on c.
type check func(actor user.Actor, c *Complaint) (bool, string)

func always(user.Actor, *Complaint) (bool, string) { return true, "" }
func never(user.Actor, *Complaint) (bool, string)  { return false, "" }

func notResolved(_ user.Actor, c *Complaint) (bool, string) {
	if c.Status == StatusResolved {
		return false, "complaint is resolved"
	}
	return true, ""
}

func reporterOnly(actor user.Actor, c *Complaint) (bool, string) {
	if c.ReporterID != actor.ID {
		return false, "not the reporter"
	}
	return true, ""
}

func assigneeOnly(actor user.Actor, c *Complaint) (bool, string) {
	if c.Assignee() != actor.ID {
		return false, "not assigned to you"
	}
	return true, ""
}

func both(checks ...check) check {
	return func(actor user.Actor, c *Complaint) (bool, string) {
		for _, ch := range checks {
			if ok, reason := ch(actor, c); !ok {
				return false, reason
			}
		}
		return true, ""
	}
}

var permissions = map[Action]map[user.Role]check{
	ActionCreate: {
		user.RoleStudent: always,
		user.RoleStaff:   never,
		user.RoleWarden:  never,
	},
	ActionSetStatus: {
		user.RoleStudent: never,
		user.RoleStaff:   always,
		user.RoleWarden:  always,
	},
	ActionAssign: {
		user.RoleStudent: never,
		user.RoleStaff:   never,
		user.RoleWarden:  always,
	},
	// staff remarks are unscoped like status changes, so broader than ActionView
	ActionAppendRemark: {
		user.RoleStudent: both(notResolved, reporterOnly),
		user.RoleStaff:   notResolved,
		user.RoleWarden:  always,
	},
	ActionView: {
		user.RoleStudent: reporterOnly,
		user.RoleStaff:   assigneeOnly,
		user.RoleWarden:  always,
	},
}

// Authorize consults the permission table once. c may be nil for ActionCreate.
func Authorize(actor user.Actor, action Action, c *Complaint) error {
	byRole, ok := permissions[action]
	if !ok {
		return apperr.Forbidden(string(actor.Role), string(action), "unknown action")
	}
	fn, ok := byRole[actor.Role]
	if !ok {
		return apperr.Forbidden(string(actor.Role), string(action), "unknown role")
	}
	if c == nil {
		c = &Complaint{}
	}
	if allowed, reason := fn(actor, c); !allowed {
		return apperr.Forbidden(string(actor.Role), string(action), reason)
	}
	return nil
}

func Visible(actor user.Actor, c *Complaint) bool {
	return Authorize(actor, ActionView, c) == nil
}

// VisibleChange applies view permissions to a complaint snapshot on the feed.
func VisibleChange(actor user.Actor, ch realtime.Change) bool {
	var c Complaint
	if err := json.Unmarshal(ch.Snapshot, &c); err != nil {
		return false
	}
	return Visible(actor, &c)
}
