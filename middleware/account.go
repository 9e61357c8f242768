package middleware

import (
	"net/http"

	"globfam/database"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ActiveAccount 每次请求确认账号仍存在且未锁定，并以数据库中的角色覆盖令牌中的角色，需在 JWTAuth 之后使用
func ActiveAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		err := database.DB.WithContext(c.Request.Context()).
			Select("id", "organization_id", "role", "status").
			Where("id = ? AND organization_id = ?", GetCurrentUserID(c), GetCurrentOrgID(c)).
			First(&user).Error
		if err != nil {
			if database.IsNotFound(err) {
				abortUnauthorized(c, "account no longer exists")
				return
			}
			log.Error().Err(err).Uint("user_id", GetCurrentUserID(c)).Msg("加载账号失败")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"message": "failed to load account"},
			})
			return
		}
		if user.Status == models.UserStatusLocked {
			abortForbidden(c, "account is locked")
			return
		}

		c.Set("role", user.Role)
		c.Next()
	}
}
