package user

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleWarden  Role = "warden"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleWarden:
		return true
	}
	return false
}

// Actor is the authenticated caller of every core operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	Role         Role      `json:"role" gorm:"index;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}
