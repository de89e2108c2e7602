package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission is a student's one-time deliverable against an assignment.
// The composite unique index rejects resubmission instead of overwriting.
// Grade, Feedback and GradedAt stay nil until the course lecturer grades;
// re-grading overwrites them in place.
type Submission struct {
	gorm.Model
	AssignmentID uint       `json:"assignmentId" gorm:"not null;uniqueIndex:idx_submission_assignment_student"`
	StudentID    uint       `json:"studentId" gorm:"not null;uniqueIndex:idx_submission_assignment_student"`
	Content      string     `json:"content" gorm:"type:text"`
	FileURL      string     `json:"fileUrl,omitempty"`
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     *string    `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"gradedAt,omitempty"`

	Assignment *Assignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Student    *User       `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}
