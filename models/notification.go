package models

import "gorm.io/gorm"

type NotificationType string

const (
	NotificationGrade      NotificationType = "grade"
	NotificationEnrollment NotificationType = "enrollment"
	NotificationAssignment NotificationType = "assignment"
	NotificationGeneral    NotificationType = "general"
)

// Notification is the durable per-user log of things that happened. Rows are
// appended by enrollment decisions and grading; the only business mutation
// afterwards is flipping Read. The websocket push is best-effort on top of
// this record, never a replacement for it.
type Notification struct {
	gorm.Model
	UserID  uint             `json:"userId" gorm:"not null;index"`
	Title   string           `json:"title" gorm:"not null"`
	Message string           `json:"message" gorm:"type:text"`
	Type    NotificationType `json:"type" gorm:"type:varchar(20);not null;default:'general'"`
	Read    bool             `json:"read" gorm:"not null;default:false"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
