package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"globfam/config"
	"globfam/database"
	"globfam/importer"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	oldDB := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = oldDB })

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, MaxUploadMB: 1},
		JWT:    config.JWTConfig{Secret: "router-secret", ExpireTime: time.Hour, CookieName: "globfam_session"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
	config.GlobalConfig = cfg
	t.Cleanup(func() { config.GlobalConfig = nil })
	middleware.InitJWT(cfg)

	return SetupRouter(cfg, importer.New(db, cfg.Import))
}

func request(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	w := request(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := setupRouter(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPut, "/api/auth/password"},
		{http.MethodGet, "/api/organization"},
		{http.MethodPost, "/api/organization/members"},
		{http.MethodGet, "/api/assets"},
		{http.MethodPost, "/api/assets/1/reconcile"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/goals/1/contributions"},
		{http.MethodPut, "/api/budget-categories/reorder"},
		{http.MethodGet, "/api/budget-category-groups"},
		{http.MethodGet, "/api/budgets/summary"},
		{http.MethodGet, "/api/dashboard/summary"},
		{http.MethodPost, "/api/imports/preview"},
		{http.MethodGet, "/api/imports"},
		{http.MethodGet, "/api/export/transactions"},
	}
	for _, rt := range routes {
		w := request(r, rt.method, rt.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}

	w := request(r, http.MethodGet, "/api/assets", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestViewerIsReadOnly(t *testing.T) {
	r := setupRouter(t)

	org := models.Organization{Name: "Silva Family", BaseCurrency: "AUD"}
	require.NoError(t, database.DB.Create(&org).Error)
	viewer := models.User{OrganizationID: org.ID, Name: "Leo", Email: "leo@example.com", Password: "x",
		Role: models.RoleViewer, Currency: "AUD", Status: models.UserStatusActive}
	require.NoError(t, database.DB.Create(&viewer).Error)

	token, err := middleware.GenerateToken(viewer.ID, org.ID, viewer.Role, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/assets", token, "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/dashboard/summary", token, "").Code)

	w := request(r, http.MethodPost, "/api/assets", token, `{"name":"Cash","type":"CASH","currency":"AUD"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = request(r, http.MethodDelete, "/api/goals/1", token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 个人资料不受只读限制
	w = request(r, http.MethodPut, "/api/auth/profile", token, `{"name":"Leonardo"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMemberCannotAddMembers(t *testing.T) {
	r := setupRouter(t)
	member := models.User{OrganizationID: 1, Name: "Mia", Email: "mia@example.com", Password: "x",
		Role: models.RoleMember, Status: models.UserStatusActive}
	require.NoError(t, database.DB.Create(&member).Error)
	token, err := middleware.GenerateToken(member.ID, 1, models.RoleMember, time.Hour)
	require.NoError(t, err)

	w := request(r, http.MethodPost, "/api/organization/members", token,
		`{"name":"Eve","email":"eve@example.com","password":"password123","role":"OWNER"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTokenReflectsAccountChanges(t *testing.T) {
	r := setupRouter(t)
	user := models.User{OrganizationID: 1, Name: "Ana", Email: "ana@example.com", Password: "x",
		Role: models.RoleOwner, Status: models.UserStatusActive}
	require.NoError(t, database.DB.Create(&user).Error)
	token, err := middleware.GenerateToken(user.ID, 1, models.RoleOwner, time.Hour)
	require.NoError(t, err)

	// 降级后原令牌立即变为只读
	require.NoError(t, database.DB.Model(&user).Update("role", models.RoleViewer).Error)
	w := request(r, http.MethodPost, "/api/assets", token, `{"name":"Cash","type":"CASH","currency":"AUD"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 锁定后原令牌不可用
	require.NoError(t, database.DB.Model(&user).Update("status", models.UserStatusLocked).Error)
	w = request(r, http.MethodGet, "/api/assets", token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, database.DB.Delete(&user).Error)
	w = request(r, http.MethodGet, "/api/assets", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/assets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
