package middleware

import (
	"net/http"

	"globfam/models"

	"github.com/gin-gonic/gin"
)

// RequireWrite 只读成员（VIEWER）禁止修改类请求，需在 JWTAuth 之后使用
func RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if GetCurrentRole(c) == models.RoleViewer {
			abortForbidden(c, "read-only members cannot modify data")
			return
		}
		c.Next()
	}
}

// RequireRole 仅允许指定角色访问
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetCurrentRole(c)] {
			abortForbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}
