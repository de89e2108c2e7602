package models

import "gorm.io/gorm"

// Course is owned by exactly one lecturer. Assignments and enrollments hang
// off it and are removed with it.
type Course struct {
	gorm.Model
	Title       string `json:"title" gorm:"not null"`
	Code        string `json:"code" gorm:"uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
	Credits     int    `json:"credits" gorm:"not null;default:3"`
	SyllabusURL string `json:"syllabusUrl,omitempty"`
	LecturerID  uint   `json:"lecturerId" gorm:"not null"`

	Lecturer    *User        `json:"lecturer,omitempty" gorm:"foreignKey:LecturerID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;"`
	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;"`
}

// CourseSummary is embedded in enrollment/grade notifications and push
// payloads.
type CourseSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

func (c Course) Summary() CourseSummary {
	return CourseSummary{ID: c.ID, Title: c.Title, Code: c.Code}
}
