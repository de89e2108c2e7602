package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/config"
	"github.com/tessyjonburica/excel-mind-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAssignment(t *testing.T, course models.Course, maxPoints float64) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		CourseID:  course.ID,
		Title:     "Problem Set 1",
		MaxPoints: maxPoints,
		DueDate:   time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, config.DB.Create(&assignment).Error)
	return assignment
}

func approveStudent(t *testing.T, student models.User, course models.Course) {
	t.Helper()
	now := time.Now()
	enrollment := models.Enrollment{
		StudentID: student.ID,
		CourseID:  course.ID,
		Status:    models.EnrollmentApproved,
		DecidedAt: &now,
	}
	require.NoError(t, config.DB.Create(&enrollment).Error)
}

func submitURL(assignmentID uint) string {
	return "/api/assignments/" + itoa(assignmentID) + "/submit"
}

func gradeURL(assignmentID, submissionID uint) string {
	return "/api/assignments/" + itoa(assignmentID) + "/submissions/" + itoa(submissionID) + "/grade"
}

func TestSubmitRequiresApprovedEnrollment(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)
	studentToken := tokenFor(t, student)

	body := map[string]string{"content": "my answer"}

	// No enrollment at all.
	w := doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A pending enrollment is not enough.
	enrollment := models.Enrollment{StudentID: student.ID, CourseID: course.ID, Status: models.EnrollmentPending}
	require.NoError(t, config.DB.Create(&enrollment).Error)
	w = doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Approved: exactly once.
	require.NoError(t, config.DB.Model(&enrollment).Update("status", models.EnrollmentApproved).Error)
	w = doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitAssignmentNotFound(t *testing.T) {
	r := setupTest(t)
	student := createUser(t, "John Doe", models.RoleStudent)

	w := doJSON(t, r, http.MethodPost, submitURL(9999), tokenFor(t, student), map[string]string{"content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitAfterDueDateIsAccepted(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	approveStudent(t, student, course)

	assignment := models.Assignment{
		CourseID:  course.ID,
		Title:     "Late one",
		MaxPoints: 100,
		DueDate:   time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, config.DB.Create(&assignment).Error)

	// Due date is informational; late submissions are not rejected.
	w := doJSON(t, r, http.MethodPost, submitURL(assignment.ID), tokenFor(t, student), map[string]string{"content": "late"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGradeSubmission(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)
	approveStudent(t, student, course)

	w := doJSON(t, r, http.MethodPost, submitURL(assignment.ID), tokenFor(t, student), map[string]string{"content": "answer"})
	require.Equal(t, http.StatusCreated, w.Code)
	var submission models.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submission))

	client := connectFakeClient(t, student.ID)

	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, lecturer),
		map[string]interface{}{"grade": 85, "feedback": "Solid work"})
	require.Equal(t, http.StatusOK, w.Code)

	var graded models.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graded))
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 85.0, *graded.Grade)
	require.NotNil(t, graded.Feedback)
	assert.Equal(t, "Solid work", *graded.Feedback)
	assert.NotNil(t, graded.GradedAt)

	// Exactly one push with the grade payload.
	event := receivePush(t, client)
	assert.Equal(t, "gradeUpdated", event.Type)
	payload := payloadMap(t, event)
	assert.Equal(t, 85.0, payload["grade"])
	assert.Equal(t, 100.0, payload["maxPoints"])
	assert.Equal(t, "Solid work", payload["feedback"])
	requireNoPush(t, client)

	// Exactly one durable record, kind grade, with grade/maxPoints in the message.
	var notifications []models.Notification
	require.NoError(t, config.DB.Where("user_id = ?", student.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationGrade, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "85/100")
}

func TestGradeEntitlement(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	otherLecturer := createUser(t, "Prof. Michael Smith", models.RoleLecturer)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)
	approveStudent(t, student, course)

	w := doJSON(t, r, http.MethodPost, submitURL(assignment.ID), tokenFor(t, student), map[string]string{"content": "answer"})
	require.Equal(t, http.StatusCreated, w.Code)
	var submission models.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submission))

	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, otherLecturer),
		map[string]interface{}{"grade": 50})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Nothing was altered.
	var current models.Submission
	require.NoError(t, config.DB.First(&current, submission.ID).Error)
	assert.Nil(t, current.Grade)
	assert.Nil(t, current.GradedAt)
}

func TestGradeValidation(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)
	approveStudent(t, student, course)

	w := doJSON(t, r, http.MethodPost, submitURL(assignment.ID), tokenFor(t, student), map[string]string{"content": "answer"})
	require.Equal(t, http.StatusCreated, w.Code)
	var submission models.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submission))

	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, lecturer),
		map[string]interface{}{"grade": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// maxPoints is informational: over-grading is allowed.
	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, lecturer),
		map[string]interface{}{"grade": 110})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGradeSubmissionNotFound(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)

	w := doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, 9999), tokenFor(t, lecturer),
		map[string]interface{}{"grade": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestEnrollmentGradingScenario walks the full workflow: request, approve,
// submit, duplicate submit, grade, re-grade.
func TestEnrollmentGradingScenario(t *testing.T) {
	r := setupTest(t)
	lecturer := createUser(t, "Dr. Sarah Johnson", models.RoleLecturer)
	admin := createUser(t, "System Administrator", models.RoleAdmin)
	student := createUser(t, "John Doe", models.RoleStudent)
	course := createCourse(t, lecturer)
	assignment := createAssignment(t, course, 100)
	studentToken := tokenFor(t, student)

	client := connectFakeClient(t, student.ID)

	w := doJSON(t, r, http.MethodPost, "/api/courses/"+itoa(course.ID)+"/enroll", studentToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var enrollment models.Enrollment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enrollment))
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)

	w = doJSON(t, r, http.MethodPatch, enrollmentURL(enrollment.ID, "approve"), tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	event := receivePush(t, client)
	assert.Equal(t, "enrollmentStatus", event.Type)
	assert.Equal(t, "approved", payloadMap(t, event)["status"])

	w = doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, map[string]string{"content": "answer"})
	require.Equal(t, http.StatusCreated, w.Code)
	var submission models.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submission))

	w = doJSON(t, r, http.MethodPost, submitURL(assignment.ID), studentToken, map[string]string{"content": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, lecturer),
		map[string]interface{}{"grade": 85, "feedback": "Good"})
	require.Equal(t, http.StatusOK, w.Code)
	event = receivePush(t, client)
	assert.Equal(t, "gradeUpdated", event.Type)
	assert.Equal(t, 85.0, payloadMap(t, event)["grade"])

	// Re-grading overwrites in place.
	w = doJSON(t, r, http.MethodPatch, gradeURL(assignment.ID, submission.ID), tokenFor(t, lecturer),
		map[string]interface{}{"grade": 90, "feedback": "Even better"})
	require.Equal(t, http.StatusOK, w.Code)
	event = receivePush(t, client)
	assert.Equal(t, 90.0, payloadMap(t, event)["grade"])

	var current models.Submission
	require.NoError(t, config.DB.First(&current, submission.ID).Error)
	require.NotNil(t, current.Grade)
	assert.Equal(t, 90.0, *current.Grade)

	// One enrollment record and two grade records for the student.
	var kinds []models.NotificationType
	require.NoError(t, config.DB.Model(&models.Notification{}).
		Where("user_id = ?", student.ID).
		Order("id").
		Pluck("type", &kinds).Error)
	assert.Equal(t, []models.NotificationType{
		models.NotificationEnrollment,
		models.NotificationGrade,
		models.NotificationGrade,
	}, kinds)
}
