package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequestEnrollmentHandler creates a pending enrollment for the calling
// student. The (student, course) pair is one-shot: any existing row, whatever
// its status, makes a new request a conflict.
func RequestEnrollmentHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	studentID := userID.(uint)
	courseID := c.Param("id")

	var course models.Course
	if err := config.DB.First(&course, courseID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	var existing models.Enrollment
	err := config.DB.
		Where("student_id = ? AND course_id = ?", studentID, course.ID).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already requested enrollment in this course"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("Failed to check existing enrollment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error while checking enrollment"})
		return
	}

	enrollment := models.Enrollment{
		StudentID: studentID,
		CourseID:  course.ID,
		Status:    models.EnrollmentPending,
	}
	if err := config.DB.Create(&enrollment).Error; err != nil {
		// The unique index backstops the check above under concurrent requests.
		c.JSON(http.StatusConflict, gin.H{"error": "You have already requested enrollment in this course"})
		return
	}

	config.DB.Preload("Student").Preload("Course.Lecturer").First(&enrollment, enrollment.ID)

	if _, err := CreateNotification(
		course.LecturerID,
		"New Enrollment Request",
		fmt.Sprintf("%s has requested to enroll in %s", enrollment.Student.Name, course.Title),
		models.NotificationEnrollment,
	); err != nil {
		slog.Error("Failed to create enrollment request notification", "error", err)
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListPendingEnrollmentsHandler returns all pending requests, newest first.
func ListPendingEnrollmentsHandler(c *gin.Context) {
	var enrollments []models.Enrollment
	err := config.DB.
		Where("status = ?", models.EnrollmentPending).
		Preload("Student").
		Preload("Course.Lecturer").
		Order("created_at desc").
		Find(&enrollments).Error
	if err != nil {
		slog.Error("Failed to fetch pending enrollments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch enrollments"})
		return
	}

	if enrollments == nil {
		enrollments = make([]models.Enrollment, 0)
	}
	c.JSON(http.StatusOK, enrollments)
}

// ListMyEnrollmentsHandler returns the calling student's enrollments.
func ListMyEnrollmentsHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var enrollments []models.Enrollment
	err := config.DB.
		Where("student_id = ?", userID).
		Preload("Course.Lecturer").
		Order("created_at desc").
		Find(&enrollments).Error
	if err != nil {
		slog.Error("Failed to fetch student enrollments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch enrollments"})
		return
	}

	if enrollments == nil {
		enrollments = make([]models.Enrollment, 0)
	}
	c.JSON(http.StatusOK, enrollments)
}

// ApproveEnrollmentHandler transitions a pending enrollment to approved.
func ApproveEnrollmentHandler(c *gin.Context) {
	decideEnrollment(c, models.EnrollmentApproved)
}

// RejectEnrollmentHandler transitions a pending enrollment to rejected.
func RejectEnrollmentHandler(c *gin.Context) {
	decideEnrollment(c, models.EnrollmentRejected)
}

// decideEnrollment performs the pending -> approved/rejected transition.
// The UPDATE is conditional on the current status and the affected-row count
// decides between success and conflict, so two concurrent decisions on the
// same enrollment cannot both win.
//
// Ordering: state transition, then notification row, then realtime push.
// The push is fire-and-forget; an offline student changes nothing about the
// response.
func decideEnrollment(c *gin.Context, decision models.EnrollmentStatus) {
	enrollmentID := c.Param("id")

	var enrollment models.Enrollment
	if err := config.DB.Preload("Course").First(&enrollment, enrollmentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}

	now := time.Now()
	result := config.DB.Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentPending).
		Updates(map[string]interface{}{
			"status":     decision,
			"decided_at": now,
		})
	if result.Error != nil {
		slog.Error("Failed to update enrollment status", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update enrollment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Enrollment is not pending"})
		return
	}

	config.DB.Preload("Student").Preload("Course").First(&enrollment, enrollment.ID)

	title := "Enrollment Approved"
	if decision == models.EnrollmentRejected {
		title = "Enrollment Rejected"
	}
	if _, err := CreateNotification(
		enrollment.StudentID,
		title,
		fmt.Sprintf("Your enrollment in %s has been %s", enrollment.Course.Title, decision),
		models.NotificationEnrollment,
	); err != nil {
		slog.Error("Failed to create enrollment decision notification", "error", err)
	}

	GlobalHub.PushToUser(enrollment.StudentID, "enrollmentStatus", gin.H{
		"enrollmentId": enrollment.ID,
		"status":       enrollment.Status,
		"course":       enrollment.Course.Summary(),
	})

	c.JSON(http.StatusOK, enrollment)
}
