package handlers

import (
	"log/slog"
	"net/http"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListCoursesHandler returns all courses with lecturer and counts.
func ListCoursesHandler(c *gin.Context) {
	var courses []models.Course
	err := config.DB.
		Preload("Lecturer").
		Preload("Assignments").
		Order("created_at desc").
		Find(&courses).Error
	if err != nil {
		slog.Error("Failed to fetch courses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch courses"})
		return
	}

	if courses == nil {
		courses = make([]models.Course, 0)
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourseHandler returns one course with enrollments and assignments.
func GetCourseHandler(c *gin.Context) {
	var course models.Course
	err := config.DB.
		Preload("Lecturer").
		Preload("Enrollments.Student").
		Preload("Assignments").
		First(&course, c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, course)
}

// CreateCourseHandler creates a course. A lecturer becomes its owner; an
// admin may create on behalf of a lecturer via lecturerId.
func CreateCourseHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var input struct {
		Title       string `json:"title" binding:"required"`
		Code        string `json:"code" binding:"required"`
		Description string `json:"description"`
		Credits     int    `json:"credits"`
		LecturerID  uint   `json:"lecturerId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	lecturerID := userID.(uint)
	if role.(models.Role) == models.RoleAdmin && input.LecturerID != 0 {
		var lecturer models.User
		if err := config.DB.First(&lecturer, input.LecturerID).Error; err != nil || lecturer.Role != models.RoleLecturer {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lecturerId must reference a lecturer"})
			return
		}
		lecturerID = input.LecturerID
	}

	if input.Credits <= 0 {
		input.Credits = 3
	}

	course := models.Course{
		Title:       input.Title,
		Code:        input.Code,
		Description: input.Description,
		Credits:     input.Credits,
		LecturerID:  lecturerID,
	}
	if err := config.DB.Create(&course).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Course code is already in use"})
		return
	}

	config.DB.Preload("Lecturer").First(&course, course.ID)
	c.JSON(http.StatusCreated, course)
}

// UpdateCourseHandler edits a course. Only the owning lecturer or an admin.
func UpdateCourseHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var course models.Course
	if err := config.DB.First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if course.LecturerID != userID.(uint) && role.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own courses"})
		return
	}

	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Credits     *int    `json:"credits"`
		SyllabusURL *string `json:"syllabusUrl"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Credits != nil {
		course.Credits = *input.Credits
	}
	if input.SyllabusURL != nil {
		course.SyllabusURL = *input.SyllabusURL
	}

	if err := config.DB.Save(&course).Error; err != nil {
		slog.Error("Failed to update course", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourseHandler removes a course and, via the cascade constraints, its
// assignments, submissions and enrollments.
func DeleteCourseHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var course models.Course
	if err := config.DB.Preload("Assignments").First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if course.LecturerID != userID.(uint) && role.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own courses"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		for _, assignment := range course.Assignments {
			if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.Submission{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
	if err != nil {
		slog.Error("Failed to delete course", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}
