package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportTranscriptHandler streams the calling student's transcript as an
// XLSX workbook: one row per graded submission, grouped under the course it
// belongs to.
func ExportTranscriptHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var enrollments []models.Enrollment
	err := config.DB.
		Where("student_id = ? AND status = ?", userID, models.EnrollmentApproved).
		Preload("Course").
		Find(&enrollments).Error
	if err != nil {
		slog.Error("Failed to fetch enrollments for transcript", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build transcript"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transcript"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Course Code", "Course Title", "Credits", "Assignment", "Grade", "Max Points"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, enrollment := range enrollments {
		var submissions []models.Submission
		err := config.DB.
			Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
			Where("assignments.course_id = ? AND submissions.student_id = ? AND submissions.grade IS NOT NULL",
				enrollment.CourseID, userID).
			Preload("Assignment").
			Find(&submissions).Error
		if err != nil {
			slog.Error("Failed to fetch submissions for transcript", "error", err, "course_id", enrollment.CourseID)
			continue
		}

		for _, submission := range submissions {
			values := []interface{}{
				enrollment.Course.Code,
				enrollment.Course.Title,
				enrollment.Course.Credits,
				submission.Assignment.Title,
				*submission.Grade,
				submission.Assignment.MaxPoints,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	fileName := fmt.Sprintf("transcript_%d.xlsx", user.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		slog.Error("Failed to write transcript workbook", "error", err)
	}
}
