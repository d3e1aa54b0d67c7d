package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hostelcare/internal/database"
	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/conversation"
	"hostelcare/internal/domain/notification"
	"hostelcare/internal/domain/user"
	jwtsvc "hostelcare/internal/pkg/jwt"
	"hostelcare/internal/realtime"
	"hostelcare/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type E2ETestSuite struct {
	router *gin.Engine
	db     *gorm.DB
}

type TestResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// syncSink fans out inline so assertions see notifications immediately.
type syncSink struct {
	d *notification.Dispatcher
}

func (s syncSink) Dispatch(ctx context.Context, ev *complaint.Event) {
	s.d.Handle(ctx, ev)
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	db, err := database.Connect("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.Migrate(db,
		&user.User{},
		&complaint.Complaint{},
		&conversation.Entry{},
		&notification.Notification{},
	))

	feed := realtime.NewMemoryFeed(64, 64, nil)
	t.Cleanup(func() { _ = feed.Close() })
	publisher := realtime.NewPublisher(feed, nil)

	jwtService := jwtsvc.New("test_secret_key_32_characters_min", time.Hour)

	userRepo := user.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	dispatcher := notification.NewDispatcher(notificationRepo, userRepo, publisher, nil, notification.DispatcherConfig{})

	complaintService := complaint.NewService(
		complaint.NewRepository(db),
		conversation.NewRepository(db),
		userRepo,
		syncSink{dispatcher},
		publisher,
		nil,
	)

	gin.SetMode(gin.TestMode)
	r := server.NewRouter(server.RouterConfig{
		JWT:           jwtService,
		Users:         user.NewHandler(user.NewService(userRepo, jwtService)),
		Complaints:    complaint.NewHandler(complaintService),
		Notifications: notification.NewHandler(notification.NewService(notificationRepo, publisher)),
	})

	return &E2ETestSuite{router: r, db: db}
}

func (s *E2ETestSuite) createAccount(t *testing.T, id, email, name string, role user.Role) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&user.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
	}).Error)
}

func (s *E2ETestSuite) login(t *testing.T, email string) string {
	w := s.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": "Password123!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := parseResponse(t, w)
	token, _ := resp.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (s *E2ETestSuite) makeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *TestResponse {
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return &resp
}

// notificationTypes returns the caller's notification types, newest first.
func (s *E2ETestSuite) notificationTypes(t *testing.T, token string) []string {
	w := s.makeRequest(http.MethodGet, "/api/v1/notifications?limit=50", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items, _ := parseResponse(t, w).Data["notifications"].([]any)
	types := make([]string, 0, len(items))
	for _, it := range items {
		n := it.(map[string]any)
		types = append(types, n["type"].(string))
	}
	return types
}

func (s *E2ETestSuite) countNotifications(t *testing.T) int64 {
	var n int64
	require.NoError(t, s.db.Model(&notification.Notification{}).Count(&n).Error)
	return n
}

func TestFlow_ComplaintLifecycle(t *testing.T) {
	suite := setupTestSuite(t)

	suite.createAccount(t, "stu-1", "asel@hostel.test", "Asel", user.RoleStudent)
	suite.createAccount(t, "warden-1", "dana@hostel.test", "Dana", user.RoleWarden)
	suite.createAccount(t, "warden-2", "aigul@hostel.test", "Aigul", user.RoleWarden)
	suite.createAccount(t, "staff-1", "timur@hostel.test", "Timur", user.RoleStaff)

	studentToken := suite.login(t, "asel@hostel.test")
	wardenToken := suite.login(t, "dana@hostel.test")
	warden2Token := suite.login(t, "aigul@hostel.test")
	staffToken := suite.login(t, "timur@hostel.test")

	var complaintID string

	t.Run("student creates complaint", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/complaints", map[string]any{
			"campus":      "North",
			"hostel":      "H1",
			"category":    "Plumbing",
			"description": "Water leaking under the sink",
			"priority":    "High",
		}, studentToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		c := parseResponse(t, w).Data["complaint"].(map[string]any)
		complaintID = c["id"].(string)
		assert.Equal(t, "Pending", c["status"])
		assert.Nil(t, c["date_resolved"])

		assert.Equal(t, []string{"COMPLAINT_CREATED"}, suite.notificationTypes(t, wardenToken))
		assert.Equal(t, []string{"COMPLAINT_CREATED"}, suite.notificationTypes(t, warden2Token))
		assert.Empty(t, suite.notificationTypes(t, studentToken))
	})

	t.Run("student cannot assign", func(t *testing.T) {
		before := suite.countNotifications(t)
		w := suite.makeRequest(http.MethodPatch, "/api/v1/complaints/"+complaintID, map[string]any{
			"assigned_to": "staff-1",
		}, studentToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", parseResponse(t, w).Error.Code)
		assert.Equal(t, before, suite.countNotifications(t))
	})

	t.Run("warden assigns staff", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPatch, "/api/v1/complaints/"+complaintID, map[string]any{
			"assigned_to": "staff-1",
		}, wardenToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, []string{"COMPLAINT_ASSIGNED"}, suite.notificationTypes(t, staffToken))
	})

	t.Run("student remark reaches assignee", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/complaints/"+complaintID+"/remarks", map[string]any{
			"text": "It is getting worse",
		}, studentToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		assert.Equal(t, []string{"MESSAGE_RECEIVED", "COMPLAINT_ASSIGNED"}, suite.notificationTypes(t, staffToken))
		assert.Equal(t, []string{"COMPLAINT_CREATED"}, suite.notificationTypes(t, wardenToken))
	})

	t.Run("staff must attach proof", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPatch, "/api/v1/complaints/"+complaintID, map[string]any{
			"status": "Resolved",
		}, staffToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", parseResponse(t, w).Error.Code)

		w = suite.makeRequest(http.MethodGet, "/api/v1/complaints/"+complaintID, nil, staffToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Pending", parseResponse(t, w).Data["complaint"].(map[string]any)["status"])
	})

	t.Run("staff resolves with proof", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPatch, "/api/v1/complaints/"+complaintID, map[string]any{
			"status":            "Resolved",
			"resolution_images": []string{"fixed.jpg"},
		}, staffToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		c := parseResponse(t, w).Data["complaint"].(map[string]any)
		assert.Equal(t, "Resolved", c["status"])
		assert.NotNil(t, c["date_resolved"])

		assert.Equal(t, []string{"COMPLAINT_RESOLVED"}, suite.notificationTypes(t, studentToken))
		assert.Equal(t, []string{"COMPLAINT_RESOLVED", "COMPLAINT_CREATED"}, suite.notificationTypes(t, wardenToken))
		assert.Equal(t, []string{"COMPLAINT_RESOLVED", "COMPLAINT_CREATED"}, suite.notificationTypes(t, warden2Token))
	})

	t.Run("warden reopens and proof is cleared", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPatch, "/api/v1/complaints/"+complaintID, map[string]any{
			"status": "InProgress",
		}, wardenToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		c := parseResponse(t, w).Data["complaint"].(map[string]any)
		assert.Nil(t, c["date_resolved"])
		assert.Empty(t, c["resolution_images"])

		assert.Equal(t, "STATUS_CHANGED_BY_WARDEN", suite.notificationTypes(t, studentToken)[0])
		assert.Equal(t, "STATUS_CHANGED_BY_WARDEN", suite.notificationTypes(t, staffToken)[0])
	})

	t.Run("mark all read is idempotent", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/notifications/read-all", nil, wardenToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, parseResponse(t, w).Data["updated"])

		w = suite.makeRequest(http.MethodPost, "/api/v1/notifications/read-all", nil, wardenToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, parseResponse(t, w).Data["updated"])

		w = suite.makeRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil, wardenToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, parseResponse(t, w).Data["unread_count"])
	})
}

func TestFlow_LoginAndAuth(t *testing.T) {
	suite := setupTestSuite(t)
	suite.createAccount(t, "stu-1", "asel@hostel.test", "Asel", user.RoleStudent)

	w := suite.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    "asel@hostel.test",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = suite.makeRequest(http.MethodGet, "/api/v1/complaints", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := suite.login(t, "asel@hostel.test")
	w = suite.makeRequest(http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student", parseResponse(t, w).Data["user"].(map[string]any)["role"])

	w = suite.makeRequest(http.MethodGet, "/api/v1/staff", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.makeRequest(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
