package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
)

// CreateNotification appends a durable notification row for the user. It is
// a pure append: the row is the system of record, and whatever realtime event
// accompanies it is the caller's responsibility.
func CreateNotification(userID uint, title, message string, kind models.NotificationType) (*models.Notification, error) {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if err := config.DB.Create(&notification).Error; err != nil {
		return nil, err
	}

	invalidateUnreadCount(userID)
	return &notification, nil
}

// CreateNotificationHandler lets an admin send a manual notification to a
// user. Appends the row, then best-effort pushes the generic "notification"
// event to the recipient.
func CreateNotificationHandler(c *gin.Context) {
	var input struct {
		UserID  uint                    `json:"userId" binding:"required"`
		Title   string                  `json:"title" binding:"required"`
		Message string                  `json:"message" binding:"required"`
		Type    models.NotificationType `json:"type"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if input.Type == "" {
		input.Type = models.NotificationGeneral
	}

	var recipient models.User
	if err := config.DB.First(&recipient, input.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	notification, err := CreateNotification(input.UserID, input.Title, input.Message, input.Type)
	if err != nil {
		slog.Error("Failed to create notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create notification"})
		return
	}

	GlobalHub.PushToUser(input.UserID, "notification", notification)
	c.JSON(http.StatusCreated, notification)
}

// ListNotificationsHandler returns the caller's notifications, newest first.
func ListNotificationsHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var notifications []models.Notification
	err := config.DB.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&notifications).Error
	if err != nil {
		slog.Error("Failed to fetch notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch notifications"})
		return
	}

	if notifications == nil {
		notifications = make([]models.Notification, 0)
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationReadHandler flips a single notification to read. The update
// is scoped to the caller, so a wrong id or someone else's notification is a
// silent no-op rather than an error.
func MarkNotificationReadHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	notificationID := c.Param("id")

	err := config.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true).Error
	if err != nil {
		slog.Error("Failed to mark notification read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update notification"})
		return
	}

	invalidateUnreadCount(userID.(uint))
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllNotificationsReadHandler flips every unread notification of the
// caller. Idempotent.
func MarkAllNotificationsReadHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	err := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	if err != nil {
		slog.Error("Failed to mark all notifications read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update notifications"})
		return
	}

	invalidateUnreadCount(userID.(uint))
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// UnreadCountHandler returns the caller's unread notification count, cached
// in Redis and invalidated on every append and read flip.
func UnreadCountHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	cacheKey := unreadCountKey(userID.(uint))
	if config.RDB != nil {
		if cached, err := config.RDB.Get(config.Ctx, cacheKey).Int64(); err == nil {
			c.JSON(http.StatusOK, gin.H{"count": cached})
			return
		}
	}

	var count int64
	err := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		slog.Error("Failed to count unread notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count notifications"})
		return
	}

	if config.RDB != nil {
		if err := config.RDB.Set(config.Ctx, cacheKey, count, 0).Err(); err != nil {
			slog.Error("Failed to cache unread count", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func unreadCountKey(userID uint) string {
	return fmt.Sprintf("user:%d:unread_count", userID)
}

func invalidateUnreadCount(userID uint) {
	if config.RDB == nil {
		return
	}
	if err := config.RDB.Del(config.Ctx, unreadCountKey(userID)).Err(); err != nil {
		slog.Error("Failed to invalidate unread count cache", "error", err, "user_id", userID)
	}
}
