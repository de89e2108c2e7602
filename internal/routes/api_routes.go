package routes

import (
	"github.com/tessyjonburica/excel-mind-crm/internal/handlers"
	"github.com/tessyjonburica/excel-mind-crm/internal/middleware"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes registers every route that requires authentication.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		apiGroup.GET("/auth/me", handlers.MeHandler)

		profile := apiGroup.Group("/profile")
		{
			profile.GET("", handlers.GetProfileHandler)
			profile.PUT("", handlers.UpdateProfileHandler)
		}

		courses := apiGroup.Group("/courses")
		{
			courses.GET("", handlers.ListCoursesHandler)
			courses.GET("/:id", handlers.GetCourseHandler)
			courses.POST("", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.CreateCourseHandler)
			courses.PUT("/:id", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.UpdateCourseHandler)
			courses.DELETE("/:id", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.DeleteCourseHandler)
			courses.POST("/:id/enroll", middleware.RequireRole(models.RoleStudent), handlers.RequestEnrollmentHandler)
		}

		enrollments := apiGroup.Group("/enrollments")
		{
			enrollments.GET("/pending", middleware.RequireRole(models.RoleAdmin), handlers.ListPendingEnrollmentsHandler)
			enrollments.GET("/my", middleware.RequireRole(models.RoleStudent), handlers.ListMyEnrollmentsHandler)
			enrollments.PATCH("/:id/approve", middleware.RequireRole(models.RoleAdmin), handlers.ApproveEnrollmentHandler)
			enrollments.PATCH("/:id/reject", middleware.RequireRole(models.RoleAdmin), handlers.RejectEnrollmentHandler)
		}

		assignments := apiGroup.Group("/assignments")
		{
			assignments.GET("", handlers.ListAssignmentsHandler)
			assignments.GET("/my", middleware.RequireRole(models.RoleStudent), handlers.ListMyAssignmentsHandler)
			assignments.GET("/:id", handlers.GetAssignmentHandler)
			assignments.POST("", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.CreateAssignmentHandler)
			assignments.PUT("/:id", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.UpdateAssignmentHandler)
			assignments.DELETE("/:id", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.DeleteAssignmentHandler)
			assignments.POST("/:id/submit", middleware.RequireRole(models.RoleStudent), handlers.SubmitAssignmentHandler)
			assignments.PATCH("/:id/submissions/:sid/grade", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.GradeSubmissionHandler)
		}

		notifications := apiGroup.Group("/notifications")
		{
			notifications.GET("", handlers.ListNotificationsHandler)
			notifications.GET("/unread-count", handlers.UnreadCountHandler)
			notifications.POST("", middleware.RequireRole(models.RoleAdmin), handlers.CreateNotificationHandler)
			notifications.PATCH("/:id/read", handlers.MarkNotificationReadHandler)
			notifications.PATCH("/read-all", handlers.MarkAllNotificationsReadHandler)
		}

		apiGroup.GET("/transcript/export", middleware.RequireRole(models.RoleStudent), handlers.ExportTranscriptHandler)

		ai := apiGroup.Group("/ai")
		{
			ai.POST("/recommend-courses", middleware.RequireRole(models.RoleStudent), handlers.RecommendCoursesHandler)
			ai.POST("/syllabus", middleware.RequireRole(models.RoleLecturer, models.RoleAdmin), handlers.GenerateSyllabusHandler)
		}
	}
}
