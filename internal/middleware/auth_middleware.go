package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// CachedIdentity is the identity shape kept in the Redis cache between
// requests: everything the authorization layer needs without a DB round trip.
type CachedIdentity struct {
	UserID uint        `json:"user_id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

// AuthMiddleware authenticates the request via JWT (cookie or bearer header)
// and puts user_id, name and role into the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("auth_token")
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				handleAuthError(c, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Invalid Authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		userID, err := ParseToken(tokenStr)
		if err != nil {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			handleAuthError(c, "Invalid or expired token")
			return
		}

		cacheKey := fmt.Sprintf("user:%d:identity", userID)
		if config.RDB != nil {
			cachedData, err := config.RDB.Get(config.Ctx, cacheKey).Result()
			if err == nil {
				var identity CachedIdentity
				if json.Unmarshal([]byte(cachedData), &identity) == nil {
					setContextAndProceed(c, &identity)
					return
				}
				slog.Warn("Failed to unmarshal cached identity", "user_id", userID)
			} else if err != redis.Nil {
				slog.Error("Redis GET command failed", "error", err, "user_id", userID)
			}
		}

		var dbUser models.User
		if err := config.DB.First(&dbUser, userID).Error; err != nil {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			handleAuthError(c, "User from token not found")
			return
		}

		identity := CachedIdentity{
			UserID: dbUser.ID,
			Name:   dbUser.Name,
			Role:   dbUser.Role,
		}

		if config.RDB != nil {
			jsonData, err := json.Marshal(identity)
			if err != nil {
				slog.Error("Failed to marshal identity for caching", "error", err, "user_id", userID)
			} else if err := config.RDB.Set(config.Ctx, cacheKey, jsonData, 10*time.Minute).Err(); err != nil {
				slog.Error("Failed to SET identity to cache", "error", err, "user_id", userID)
			}
		}

		setContextAndProceed(c, &identity)
	}
}

// ParseToken verifies an HS256 token and returns the user id it carries.
// The websocket handshake uses this directly, outside the middleware chain.
func ParseToken(tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.JwtKey, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid user id in token")
	}
	return uint(userIDFloat), nil
}

func setContextAndProceed(c *gin.Context, identity *CachedIdentity) {
	c.Set("user_id", identity.UserID)
	c.Set("userName", identity.Name)
	c.Set("role", identity.Role)
	c.Next()
}

// RequireRole gates a route to the given roles. The role set is closed, so
// every authorization point is an exhaustive check against models.Role
// constants rather than a string comparison.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found in context"})
			c.Abort()
			return
		}

		role, ok := roleVal.(models.Role)
		if !ok || !role.Valid() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Internal role format error"})
			c.Abort()
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		c.Abort()
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	c.Abort()
}
