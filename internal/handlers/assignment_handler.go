package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const submissionUploadDir = "./static/uploads/submissions"

// CreateAssignmentHandler creates an assignment on a course owned by the
// calling lecturer.
func CreateAssignmentHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var input struct {
		CourseID    uint      `json:"courseId" binding:"required"`
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description"`
		MaxPoints   float64   `json:"maxPoints"`
		DueDate     time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var course models.Course
	if err := config.DB.First(&course, input.CourseID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if course.LecturerID != userID.(uint) && role.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only create assignments for your own courses"})
		return
	}

	if input.MaxPoints <= 0 {
		input.MaxPoints = 100
	}

	assignment := models.Assignment{
		CourseID:    input.CourseID,
		Title:       input.Title,
		Description: input.Description,
		MaxPoints:   input.MaxPoints,
		DueDate:     input.DueDate,
	}
	if err := config.DB.Create(&assignment).Error; err != nil {
		slog.Error("Failed to create assignment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
		return
	}

	config.DB.Preload("Course").First(&assignment, assignment.ID)
	c.JSON(http.StatusCreated, assignment)
}

// ListAssignmentsHandler returns all assignments with their course.
func ListAssignmentsHandler(c *gin.Context) {
	var assignments []models.Assignment
	err := config.DB.
		Preload("Course.Lecturer").
		Order("created_at desc").
		Find(&assignments).Error
	if err != nil {
		slog.Error("Failed to fetch assignments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch assignments"})
		return
	}

	if assignments == nil {
		assignments = make([]models.Assignment, 0)
	}
	c.JSON(http.StatusOK, assignments)
}

// GetAssignmentHandler returns one assignment with its submissions.
func GetAssignmentHandler(c *gin.Context) {
	var assignment models.Assignment
	err := config.DB.
		Preload("Course.Lecturer").
		Preload("Submissions.Student").
		First(&assignment, c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// ListMyAssignmentsHandler returns the calling student's assignments across
// approved courses, each with the student's own submission attached if any.
func ListMyAssignmentsHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var enrollments []models.Enrollment
	err := config.DB.
		Where("student_id = ? AND status = ?", userID, models.EnrollmentApproved).
		Find(&enrollments).Error
	if err != nil {
		slog.Error("Failed to fetch enrollments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch assignments"})
		return
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}

	assignments := make([]models.Assignment, 0)
	if len(courseIDs) > 0 {
		err = config.DB.
			Where("course_id IN ?", courseIDs).
			Preload("Course").
			Preload("Submissions", "student_id = ?", userID).
			Order("due_date asc").
			Find(&assignments).Error
		if err != nil {
			slog.Error("Failed to fetch student assignments", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch assignments"})
			return
		}
	}

	c.JSON(http.StatusOK, assignments)
}

// UpdateAssignmentHandler edits an assignment owned by the calling lecturer.
func UpdateAssignmentHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var assignment models.Assignment
	if err := config.DB.Preload("Course").First(&assignment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}
	if assignment.Course.LecturerID != userID.(uint) && role.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update assignments for your own courses"})
		return
	}

	var input struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		MaxPoints   *float64   `json:"maxPoints"`
		DueDate     *time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if input.Title != nil {
		assignment.Title = *input.Title
	}
	if input.Description != nil {
		assignment.Description = *input.Description
	}
	if input.MaxPoints != nil {
		assignment.MaxPoints = *input.MaxPoints
	}
	if input.DueDate != nil {
		assignment.DueDate = *input.DueDate
	}

	if err := config.DB.Save(&assignment).Error; err != nil {
		slog.Error("Failed to update assignment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update assignment"})
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignmentHandler removes an assignment owned by the calling lecturer.
func DeleteAssignmentHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var assignment models.Assignment
	if err := config.DB.Preload("Course").First(&assignment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}
	if assignment.Course.LecturerID != userID.(uint) && role.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete assignments for your own courses"})
		return
	}

	if err := config.DB.Select("Submissions").Delete(&assignment).Error; err != nil {
		slog.Error("Failed to delete assignment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete assignment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted successfully"})
}

// SubmitAssignmentHandler creates the calling student's submission. Requires
// an approved enrollment in the assignment's course; a second submission to
// the same assignment is a conflict. A late submission is accepted: the due
// date is informational. Accepts JSON or multipart (field "file" for an
// attachment).
func SubmitAssignmentHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	studentID := userID.(uint)

	var assignment models.Assignment
	if err := config.DB.First(&assignment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	var enrollment models.Enrollment
	err := config.DB.
		Where("student_id = ? AND course_id = ?", studentID, assignment.CourseID).
		First(&enrollment).Error
	if err != nil || enrollment.Status != models.EnrollmentApproved {
		c.JSON(http.StatusForbidden, gin.H{"error": "You must be enrolled in this course to submit assignments"})
		return
	}

	var existing models.Submission
	err = config.DB.
		Where("assignment_id = ? AND student_id = ?", assignment.ID, studentID).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already submitted this assignment"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("Failed to check existing submission", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error while checking submission"})
		return
	}

	var content, fileURL string
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		content = c.PostForm("content")
		if file, err := c.FormFile("file"); err == nil {
			if err := os.MkdirAll(submissionUploadDir, os.ModePerm); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create upload directory"})
				return
			}
			ext := strings.ToLower(filepath.Ext(file.Filename))
			newFileName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
			if err := c.SaveUploadedFile(file, filepath.Join(submissionUploadDir, newFileName)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save file: " + err.Error()})
				return
			}
			fileURL = "/static/uploads/submissions/" + newFileName
		}
	} else {
		var input struct {
			Content string `json:"content"`
			FileURL string `json:"fileUrl"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		content = input.Content
		fileURL = input.FileURL
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    studentID,
		Content:      content,
		FileURL:      fileURL,
	}
	if err := config.DB.Create(&submission).Error; err != nil {
		// The unique index backstops the check above under concurrent requests.
		c.JSON(http.StatusConflict, gin.H{"error": "You have already submitted this assignment"})
		return
	}

	config.DB.Preload("Assignment.Course").Preload("Student").First(&submission, submission.ID)
	c.JSON(http.StatusCreated, submission)
}

// GradeSubmissionHandler sets grade, feedback and gradedAt on a submission.
// Only the lecturer owning the submission's course may grade. Re-grading
// overwrites the previous values in place. After the update it appends a
// grade notification and fire-and-forget pushes "gradeUpdated" to the
// student; neither depends on the student being connected.
func GradeSubmissionHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var submission models.Submission
	err := config.DB.
		Preload("Assignment.Course").
		Preload("Student").
		Where("assignment_id = ? AND id = ?", c.Param("id"), c.Param("sid")).
		First(&submission).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if submission.Assignment.Course.LecturerID != userID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only grade assignments for your own courses"})
		return
	}

	var input struct {
		Grade    *float64 `json:"grade" binding:"required"`
		Feedback string   `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if *input.Grade < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Grade must be a non-negative number"})
		return
	}

	now := time.Now()
	submission.Grade = input.Grade
	submission.Feedback = &input.Feedback
	submission.GradedAt = &now
	if err := config.DB.Save(&submission).Error; err != nil {
		slog.Error("Failed to save grade", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grade submission"})
		return
	}

	if _, err := CreateNotification(
		submission.StudentID,
		"Assignment Graded",
		fmt.Sprintf("Your assignment %q has been graded. You received %g/%g points.",
			submission.Assignment.Title, *input.Grade, submission.Assignment.MaxPoints),
		models.NotificationGrade,
	); err != nil {
		slog.Error("Failed to create grade notification", "error", err)
	}

	GlobalHub.PushToUser(submission.StudentID, "gradeUpdated", gin.H{
		"assignmentId": submission.AssignmentID,
		"submissionId": submission.ID,
		"grade":        *input.Grade,
		"maxPoints":    submission.Assignment.MaxPoints,
		"feedback":     input.Feedback,
		"course":       submission.Assignment.Course.Summary(),
	})

	c.JSON(http.StatusOK, submission)
}
