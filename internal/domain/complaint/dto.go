package complaint

type CreateInput struct {
	Campus      string   `json:"campus" validate:"required"`
	Hostel      string   `json:"hostel" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Attachments []string `json:"attachments" validate:"max=5,dive,required"`
}

type CreateComplaintRequest struct {
	Campus      string   `json:"campus" binding:"required"`
	Hostel      string   `json:"hostel" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Priority    string   `json:"priority"`
	Attachments []string `json:"attachments"`
}

// UpdateComplaintRequest covers SetStatus, AssignTo and both at once.
type UpdateComplaintRequest struct {
	Status           *string  `json:"status"`
	AssignedTo       *string  `json:"assigned_to"`
	Unassign         bool     `json:"unassign"`
	ResolutionImages []string `json:"resolution_images"`
}

type AppendRemarkRequest struct {
	Text string `json:"text" binding:"required"`
}

type ListComplaintsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
