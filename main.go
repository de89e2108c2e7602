package main

import (
	"log/slog"
	"os"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/internal/handlers"
	"github.com/tessyjonburica/excel-mind-crm/internal/routes"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment")
	}

	config.LoadJwtKey()
	config.ConnectDB()
	config.ConnectRedis()
	if err := config.InitGemini(); err != nil {
		slog.Warn("Gemini disabled, AI endpoints will use canned responses", "reason", err)
	}

	err := config.DB.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.Notification{},
	)
	if err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	go handlers.GlobalHub.Run()

	r := gin.Default()
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Starting server", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
