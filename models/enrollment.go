package models

import (
	"time"

	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Enrollment records a student's relationship to a course. The composite
// unique index makes the pair a one-shot request: a rejected row is the
// permanent record, not something a student can retry past.
//
// Transitions: pending -> approved, pending -> rejected. Nothing leaves a
// terminal state; the conditional UPDATE in the handler enforces this even
// under concurrent decisions.
type Enrollment struct {
	gorm.Model
	StudentID uint             `json:"studentId" gorm:"not null;uniqueIndex:idx_enrollment_student_course"`
	CourseID  uint             `json:"courseId" gorm:"not null;uniqueIndex:idx_enrollment_student_course"`
	Status    EnrollmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	DecidedAt *time.Time       `json:"decidedAt,omitempty"`

	Student *User   `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Course  *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
