package models

import "gorm.io/gorm"

// Role is the closed set of account roles. Authorization decisions switch on
// this type rather than comparing raw strings from the token.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system. The role is fixed at
// registration and never changes within a session.
type User struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Role     Role   `json:"role" gorm:"type:varchar(20);not null;default:'student'"`
	Avatar   string `json:"avatar,omitempty"`
}

// UserSummary is the trimmed user shape embedded in enrollment and
// submission responses.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
