package complaint

import (
	"slices"
	"time"

	"hostelcare/internal/domain/conversation"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Complaint is the single mutable record shared by all actors.
// DateResolved is set exactly when Status is Resolved.
type Complaint struct {
	ID               string                      `json:"id" gorm:"primaryKey;size:36"`
	ReporterID       string                      `json:"reporter_id" gorm:"index;not null"`
	ReporterName     string                      `json:"reporter_name"`
	Campus           string                      `json:"campus" gorm:"not null"`
	Hostel           string                      `json:"hostel" gorm:"not null"`
	Category         string                      `json:"category" gorm:"not null"`
	Description      string                      `json:"description" gorm:"type:text;not null"`
	Priority         Priority                    `json:"priority" gorm:"not null"`
	Status           Status                      `json:"status" gorm:"index;not null"`
	AssignedTo       *string                     `json:"assigned_to" gorm:"index"`
	Attachments      datatypes.JSONSlice[string] `json:"attachments"`
	ResolutionImages datatypes.JSONSlice[string] `json:"resolution_images"`
	DateSubmitted    time.Time                   `json:"date_submitted"`
	DateResolved     *time.Time                  `json:"date_resolved"`
	UpdatedAt        time.Time                   `json:"updated_at"`

	Remarks []conversation.Entry `json:"remarks" gorm:"-"`
}

func (Complaint) TableName() string { return "complaints" }

func (c *Complaint) Assignee() string {
	if c.AssignedTo == nil {
		return ""
	}
	return *c.AssignedTo
}

// Clone copies c deeply enough that mutating the copy never touches c.
func (c *Complaint) Clone() *Complaint {
	out := *c
	if c.AssignedTo != nil {
		v := *c.AssignedTo
		out.AssignedTo = &v
	}
	if c.DateResolved != nil {
		v := *c.DateResolved
		out.DateResolved = &v
	}
	out.Attachments = slices.Clone(c.Attachments)
	out.ResolutionImages = slices.Clone(c.ResolutionImages)
	out.Remarks = slices.Clone(c.Remarks)
	return &out
}
