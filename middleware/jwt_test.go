package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"globfam/config"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-jwt-secret-key", CookieName: "globfam_session"},
	}
	InitJWT(config.GlobalConfig)
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, err := GenerateToken(1, 7, models.RoleOwner, 24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, uint(7), claims.OrganizationID)
	assert.Equal(t, models.RoleOwner, claims.Role)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	_, err := ParseToken("")
	assert.Error(t, err)

	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)

	// 已过期
	expired, err := GenerateToken(1, 1, models.RoleMember, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	// 其他密钥签发
	token, err := GenerateToken(1, 1, models.RoleMember, time.Hour)
	require.NoError(t, err)
	jwtSecret = []byte("another-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "user:%d org:%d role:%s", GetCurrentUserID(c), GetCurrentOrgID(c), GetCurrentRole(c))
	})

	do := func(setup func(r *http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		setup(req)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 无凭证
	w := do(func(r *http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	// 非 Bearer
	w = do(func(r *http.Request) { r.Header.Set("Authorization", "Basic xyz") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 仅 Bearer 无 token
	w = do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := GenerateToken(42, 3, models.RoleViewer, time.Hour)
	require.NoError(t, err)

	// Bearer 头
	w = do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "user:42 org:3 role:VIEWER", w.Body.String())

	// 会话 Cookie
	w = do(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "globfam_session", Value: token}) })
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "user:42 org:3 role:VIEWER", w.Body.String())

	// Cookie 值无效
	w = do(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "globfam_session", Value: "garbage"}) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCurrentIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))
	assert.Equal(t, uint(0), GetCurrentOrgID(c))
	assert.Equal(t, "", GetCurrentRole(c))

	c.Set("userID", uint(99))
	c.Set("organizationID", uint(5))
	assert.Equal(t, uint(99), GetCurrentUserID(c))
	assert.Equal(t, uint(5), GetCurrentOrgID(c))
}
