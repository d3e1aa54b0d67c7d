package notification

import (
	"time"

	"gorm.io/datatypes"
)

// Type values are stable on the wire.
type Type string

const (
	TypeComplaintCreated      Type = "COMPLAINT_CREATED"
	TypeComplaintUpdated      Type = "COMPLAINT_UPDATED"
	TypeComplaintAssigned     Type = "COMPLAINT_ASSIGNED"
	TypeComplaintResolved     Type = "COMPLAINT_RESOLVED"
	TypeMessageReceived       Type = "MESSAGE_RECEIVED"
	TypeStatusChangedByWarden Type = "STATUS_CHANGED_BY_WARDEN"
)

// Payload denormalizes the complaint fields a recipient needs to render
// the notification without another read.
type Payload struct {
	ComplaintID    string `json:"complaintId"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	ActorName      string `json:"actorName"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	ReporterName   string `json:"reporterName,omitempty"`
	ResolverName   string `json:"resolverName,omitempty"`
	MessagePreview string `json:"messagePreview,omitempty"`
}

// Notification is immutable except IsRead and ClickedAt, which are set
// once and never reset.
type Notification struct {
	ID          string                      `json:"id" gorm:"primaryKey;size:36"`
	RecipientID string                      `json:"recipient_id" gorm:"index:idx_notifications_recipient_unread;not null"`
	Type        Type                        `json:"type" gorm:"not null"`
	Payload     datatypes.JSONType[Payload] `json:"payload"`
	IsRead      bool                        `json:"is_read" gorm:"index:idx_notifications_recipient_unread;not null;default:false"`
	ClickedAt   *time.Time                  `json:"clicked_at"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
