package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const avatarUploadDir = "./static/uploads/avatars"

// GetProfileHandler returns the caller's profile.
func GetProfileHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfileHandler updates name and avatar. Multipart with an "avatar"
// file replaces the stored avatar; role and email are immutable here.
func UpdateProfileHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if name := c.PostForm("name"); name != "" {
			user.Name = name
		}
		if file, err := c.FormFile("avatar"); err == nil {
			if err := os.MkdirAll(avatarUploadDir, os.ModePerm); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create upload directory"})
				return
			}
			ext := strings.ToLower(filepath.Ext(file.Filename))
			newFileName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
			if err := c.SaveUploadedFile(file, filepath.Join(avatarUploadDir, newFileName)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save file: " + err.Error()})
				return
			}
			user.Avatar = "/static/uploads/avatars/" + newFileName
		}
	} else {
		var input struct {
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		if input.Name != "" {
			user.Name = input.Name
		}
		if input.Avatar != "" {
			user.Avatar = input.Avatar
		}
	}

	if err := config.DB.Save(&user).Error; err != nil {
		slog.Error("Failed to update profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	// Identity cache may now hold a stale name.
	if config.RDB != nil {
		cacheKey := fmt.Sprintf("user:%d:identity", user.ID)
		if err := config.RDB.Del(config.Ctx, cacheKey).Err(); err != nil {
			slog.Error("Failed to invalidate identity cache", "error", err, "user_id", user.ID)
		}
	}

	c.JSON(http.StatusOK, user)
}
