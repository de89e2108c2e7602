package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/internal/middleware"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTest wires the handlers to a fresh in-memory database and a fresh hub,
// and returns a router with the production route table.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.JwtKey = []byte("test-secret")
	config.RDB = nil
	config.GeminiClient = nil

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.Notification{},
	))
	config.DB = db

	GlobalHub = NewHub()
	go GlobalHub.Run()

	r := gin.New()
	registerTestRoutes(r)
	return r
}

// registerTestRoutes mirrors routes.SetupRoutes without importing the routes
// package (which would be an import cycle from here). The middleware is the
// production middleware.
func registerTestRoutes(r *gin.Engine) {
	r.POST("/api/auth/register", RegisterHandler)
	r.POST("/api/auth/login", LoginHandler)
	r.GET("/api/ws", NotificationsWSEndpoint)

	requireRole := middleware.RequireRole
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	api := authRequired.Group("/api")

	api.GET("/auth/me", MeHandler)
	api.GET("/profile", GetProfileHandler)
	api.PUT("/profile", UpdateProfileHandler)

	api.GET("/courses", ListCoursesHandler)
	api.GET("/courses/:id", GetCourseHandler)
	api.POST("/courses", requireRole(models.RoleLecturer, models.RoleAdmin), CreateCourseHandler)
	api.PUT("/courses/:id", requireRole(models.RoleLecturer, models.RoleAdmin), UpdateCourseHandler)
	api.DELETE("/courses/:id", requireRole(models.RoleLecturer, models.RoleAdmin), DeleteCourseHandler)
	api.POST("/courses/:id/enroll", requireRole(models.RoleStudent), RequestEnrollmentHandler)

	api.GET("/enrollments/pending", requireRole(models.RoleAdmin), ListPendingEnrollmentsHandler)
	api.GET("/enrollments/my", requireRole(models.RoleStudent), ListMyEnrollmentsHandler)
	api.PATCH("/enrollments/:id/approve", requireRole(models.RoleAdmin), ApproveEnrollmentHandler)
	api.PATCH("/enrollments/:id/reject", requireRole(models.RoleAdmin), RejectEnrollmentHandler)

	api.GET("/assignments", ListAssignmentsHandler)
	api.GET("/assignments/my", requireRole(models.RoleStudent), ListMyAssignmentsHandler)
	api.GET("/assignments/:id", GetAssignmentHandler)
	api.POST("/assignments", requireRole(models.RoleLecturer, models.RoleAdmin), CreateAssignmentHandler)
	api.POST("/assignments/:id/submit", requireRole(models.RoleStudent), SubmitAssignmentHandler)
	api.PATCH("/assignments/:id/submissions/:sid/grade", requireRole(models.RoleLecturer, models.RoleAdmin), GradeSubmissionHandler)

	api.GET("/notifications", ListNotificationsHandler)
	api.GET("/notifications/unread-count", UnreadCountHandler)
	api.POST("/notifications", requireRole(models.RoleAdmin), CreateNotificationHandler)
	api.PATCH("/notifications/:id/read", MarkNotificationReadHandler)
	api.PATCH("/notifications/read-all", MarkAllNotificationsReadHandler)

	api.GET("/transcript/export", requireRole(models.RoleStudent), ExportTranscriptHandler)
}

func createUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%d@excelmind.edu", role, time.Now().UnixNano()),
		Password: string(hashed),
		Role:     role,
	}
	require.NoError(t, config.DB.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := issueToken(user)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// connectFakeClient registers an in-process client with the hub, standing in
// for a live websocket. Pushed events can be read from its send channel.
func connectFakeClient(t *testing.T, userID uint) *Client {
	t.Helper()
	client := &Client{
		hub:    GlobalHub,
		send:   make(chan []byte, 16),
		userID: userID,
	}
	GlobalHub.register <- client
	require.Eventually(t, func() bool {
		GlobalHub.mu.Lock()
		defer GlobalHub.mu.Unlock()
		return GlobalHub.clients[userID] == client
	}, time.Second, 5*time.Millisecond)
	return client
}

func receivePush(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case data, ok := <-client.send:
		require.True(t, ok, "send channel closed before an event arrived")
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a push")
		return Event{}
	}
}

func requireNoPush(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data, ok := <-client.send:
		if ok {
			t.Fatalf("unexpected push: %s", data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func payloadMap(t *testing.T, event Event) map[string]interface{} {
	t.Helper()
	m, ok := event.Payload.(map[string]interface{})
	require.True(t, ok, "payload is not an object")
	return m
}
