package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
)

// RecommendCoursesHandler suggests courses for the calling student based on
// their stated interests. Uses Gemini when configured, otherwise falls back
// to a deterministic recommendation built from the catalog.
func RecommendCoursesHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var input struct {
		Interests string `json:"interests" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var enrolledIDs []uint
	config.DB.Model(&models.Enrollment{}).
		Where("student_id = ?", userID).
		Pluck("course_id", &enrolledIDs)

	query := config.DB.Preload("Lecturer")
	if len(enrolledIDs) > 0 {
		query = query.Where("id NOT IN ?", enrolledIDs)
	}
	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		slog.Error("Failed to fetch course catalog", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch courses"})
		return
	}

	if config.GeminiClient != nil {
		if text, err := generateRecommendation(input.Interests, courses); err == nil {
			c.JSON(http.StatusOK, gin.H{"recommendation": text, "courses": courses})
			return
		} else {
			slog.Error("Gemini recommendation failed, falling back", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendation": mockRecommendation(input.Interests, courses),
		"courses":        courses,
	})
}

// GenerateSyllabusHandler drafts a syllabus outline for a course owned by
// the calling lecturer.
func GenerateSyllabusHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	var input struct {
		CourseID uint   `json:"courseId" binding:"required"`
		Topics   string `json:"topics"`
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
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only generate syllabi for your own courses"})
		return
	}

	if config.GeminiClient != nil {
		prompt := fmt.Sprintf(
			"Draft a week-by-week syllabus outline for the university course %q (%s, %d credits). "+
				"Focus topics: %s. Keep it concise and structured.",
			course.Title, course.Code, course.Credits, input.Topics)
		if text, err := generateText(prompt); err == nil {
			c.JSON(http.StatusOK, gin.H{"syllabus": text})
			return
		} else {
			slog.Error("Gemini syllabus generation failed, falling back", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"syllabus": mockSyllabus(course, input.Topics)})
}

func generateRecommendation(interests string, courses []models.Course) (string, error) {
	var catalog strings.Builder
	for _, course := range courses {
		fmt.Fprintf(&catalog, "- %s (%s): %s\n", course.Title, course.Code, course.Description)
	}
	prompt := fmt.Sprintf(
		"You are an academic advisor. A student is interested in: %q. "+
			"From the following catalog, recommend up to three courses and briefly say why each fits:\n%s",
		interests, catalog.String())
	return generateText(prompt)
}

func generateText(prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := config.GeminiClient.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		if textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
			return string(textPart), nil
		}
	}
	return "", fmt.Errorf("empty response from Gemini")
}

func mockRecommendation(interests string, courses []models.Course) string {
	if len(courses) == 0 {
		return fmt.Sprintf("No open courses match your interest in %s right now. Check back after the next catalog update.", interests)
	}
	limit := 3
	if len(courses) < limit {
		limit = len(courses)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your interest in %s, consider:\n", interests)
	for _, course := range courses[:limit] {
		fmt.Fprintf(&b, "- %s (%s, %d credits)\n", course.Title, course.Code, course.Credits)
	}
	return b.String()
}

func mockSyllabus(course models.Course, topics string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Syllabus outline for %s (%s)\n", course.Title, course.Code)
	if topics != "" {
		fmt.Fprintf(&b, "Focus: %s\n", topics)
	}
	for week := 1; week <= 12; week++ {
		fmt.Fprintf(&b, "Week %d: TBD\n", week)
	}
	return b.String()
}
