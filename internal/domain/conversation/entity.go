package conversation

import (
	"time"

	"hostelcare/internal/domain/user"
)

// Entry is one append-only remark on a complaint. Seq orders the thread.
type Entry struct {
	Seq         int64     `json:"seq,string" gorm:"primaryKey;autoIncrement:false"`
	ComplaintID string    `json:"complaint_id" gorm:"index;size:36;not null"`
	SenderID    string    `json:"sender_id" gorm:"not null"`
	SenderName  string    `json:"sender_name"`
	SenderRole  user.Role `json:"sender_role" gorm:"not null"`
	Text        string    `json:"text" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Entry) TableName() string { return "complaint_remarks" }
