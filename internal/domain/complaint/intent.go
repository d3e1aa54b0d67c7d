package complaint

import "hostelcare/internal/pkg/apperr"

// Assignment sets StaffID, or clears the assignee when StaffID is nil.
type Assignment struct {
	StaffID *string
}

// Intent is the mutation requested by one Apply call. Status and
// Assignment may be combined; Remark stands alone.
type Intent struct {
	Status           *Status
	Assignment       *Assignment
	Remark           *string
	ResolutionImages []string
}

func SetStatus(s Status, proof ...string) Intent {
	return Intent{Status: &s, ResolutionImages: proof}
}

func AssignTo(staffID string) Intent {
	return Intent{Assignment: &Assignment{StaffID: &staffID}}
}

func Unassign() Intent {
	return Intent{Assignment: &Assignment{}}
}

func AppendRemark(text string) Intent {
	return Intent{Remark: &text}
}

// WithAssignment combines a status change with an assignment.
func (i Intent) WithAssignment(a Assignment) Intent {
	i.Assignment = &a
	return i
}

func (i Intent) validateShape() error {
	if i.Remark != nil {
		if i.Status != nil || i.Assignment != nil || len(i.ResolutionImages) > 0 {
			return apperr.Validation("intent", "a remark cannot be combined with other changes")
		}
		return nil
	}
	if i.Status == nil && i.Assignment == nil {
		return apperr.Validation("intent", "nothing to change")
	}
	if len(i.ResolutionImages) > 0 && (i.Status == nil || *i.Status != StatusResolved) {
		return apperr.Validation("resolution_images", "proof is only accepted when resolving")
	}
	return nil
}
