package api

import (
	"net/http"
	"strings"

	"globfam/config"
	"globfam/middleware"

	"github.com/gin-gonic/gin"
)

// likeEscape LIKE 转义字符，配合 ESCAPE '!' 在 postgres / mysql / sqlite 上行为一致
const likeEscape = "!"

// escapeLikeValue 转义 LIKE 查询中的通配符 % 和 _，防止用户注入改变匹配语义
func escapeLikeValue(s string) string {
	s = strings.ReplaceAll(s, likeEscape, likeEscape+likeEscape)
	s = strings.ReplaceAll(s, "%", likeEscape+"%")
	s = strings.ReplaceAll(s, "_", likeEscape+"_")
	return s
}

// getCookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），SameSite=Lax 防止跨站 POST 携带 Cookie
func getCookieOptions() (secure bool, sameSite http.SameSite) {
	return config.IsRelease(), http.SameSiteLaxMode
}

// setSessionCookie 写入会话 Cookie（HttpOnly）
func setSessionCookie(c *gin.Context, token string, maxAge int) {
	secure, sameSite := getCookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(middleware.SessionCookieName(), token, maxAge, "/", "", secure, true)
}

// clearSessionCookie 清除会话 Cookie
func clearSessionCookie(c *gin.Context) {
	setSessionCookie(c, "", -1)
}
