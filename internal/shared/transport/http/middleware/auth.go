package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Warfront/internal/shared/security"
	"Warfront/internal/shared/transport"
)

const ClaimsKey = "claims"

// Auth 校验 Bearer token；需要时也接受 query 里的 token（浏览器 websocket 无法带 header）。
// 只读请求任何角色都可访问，其余请求要求指挥官令牌。
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": transport.SessionInvalid, "msg": "missing token"})
			return
		}
		claims, err := security.ParseToken(token)
		if err != nil {
			transport.SetErrorReason(c.Request.Context(), err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": transport.SessionInvalid, "msg": "invalid token"})
			return
		}
		if c.Request.Method != http.MethodGet && !claims.CanCommand() {
			transport.SetErrorReason(c.Request.Context(), "observer_write")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": transport.Forbidden, "msg": "commander token required"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
