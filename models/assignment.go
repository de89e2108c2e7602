package models

import (
	"time"

	"gorm.io/gorm"
)

// Assignment belongs to a course and is managed only by that course's
// lecturer. DueDate is informational: late submissions are accepted.
type Assignment struct {
	gorm.Model
	CourseID    uint      `json:"courseId" gorm:"not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	MaxPoints   float64   `json:"maxPoints" gorm:"not null;default:100"`
	DueDate     time.Time `json:"dueDate"`

	Course      *Course      `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Submissions []Submission `json:"submissions,omitempty" gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE;"`
}
