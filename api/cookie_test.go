package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"globfam/config"
	"globfam/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLikeValue(t *testing.T) {
	assert.Equal(t, "coles", escapeLikeValue("coles"))
	assert.Equal(t, "50!%", escapeLikeValue("50%"))
	assert.Equal(t, "a!_b", escapeLikeValue("a_b"))
	assert.Equal(t, "wow!!", escapeLikeValue("wow!"))
}

func TestGetCookieOptions(t *testing.T) {
	defer func() { config.GlobalConfig = nil }()

	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "debug"}}
	secure, sameSite := getCookieOptions()
	assert.False(t, secure)
	assert.Equal(t, http.SameSiteLaxMode, sameSite)

	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "release"}}
	secure, _ = getCookieOptions()
	assert.True(t, secure)
}

func TestSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	middleware.InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "s", CookieName: "globfam_session"}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setSessionCookie(c, "token-value", 3600)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "globfam_session", cookies[0].Name)
	assert.Equal(t, "token-value", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	clearSessionCookie(c)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}
