package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func roleRouter(role string, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("role", role)
		c.Next()
	}, guard)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func serve(r *gin.Engine, method string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/x", nil))
	return w.Code
}

func TestRequireWrite(t *testing.T) {
	viewer := roleRouter(models.RoleViewer, RequireWrite())
	assert.Equal(t, http.StatusOK, serve(viewer, "GET"))
	assert.Equal(t, http.StatusForbidden, serve(viewer, "POST"))

	member := roleRouter(models.RoleMember, RequireWrite())
	assert.Equal(t, http.StatusOK, serve(member, "GET"))
	assert.Equal(t, http.StatusCreated, serve(member, "POST"))
}

func TestRequireRole(t *testing.T) {
	owner := roleRouter(models.RoleOwner, RequireRole(models.RoleOwner))
	assert.Equal(t, http.StatusCreated, serve(owner, "POST"))

	member := roleRouter(models.RoleMember, RequireRole(models.RoleOwner))
	assert.Equal(t, http.StatusForbidden, serve(member, "GET"))
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(200, c.GetString("requestID")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}
