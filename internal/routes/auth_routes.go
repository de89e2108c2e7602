package routes

import (
	"github.com/tessyjonburica/excel-mind-crm/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers the public routes: registration, login, and
// the websocket endpoint, which authenticates its own handshake.
func RegisterAuthRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/login", handlers.LoginHandler)
		auth.POST("/logout", handlers.LogoutHandler)
	}

	r.GET("/api/ws", handlers.NotificationsWSEndpoint)
}
