package middleware

import (
	"net/http"
	"strings"

	"frp-manager/internal/logger"
	"frp-manager/internal/models"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Authenticator verifies a bearer token, implemented by services.AuthService.
type Authenticator interface {
	Authenticate(token string) (*models.Caller, error)
}

// TokenFromRequest 优先取Authorization头，WebSocket握手时取token查询参数
func TokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

/**
 * Auth 校验JWT，并把请求者保存到gin上下文
 * @param {Authenticator} auth - token校验器
 * @description
 * - token缺失或无效时返回401
 */
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("unauthorized", "未提供认证令牌"))
			return
		}
		caller, err := auth.Authenticate(token)
		if err != nil {
			logger.Debugf("Reject token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("unauthorized", "认证令牌无效或已过期"))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// AdminOnly 必须放在Auth之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCaller(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Fail("forbidden", "需要管理员权限"))
			return
		}
		c.Next()
	}
}

// GetCaller 返回Auth保存的请求者，未认证时为nil
func GetCaller(c *gin.Context) *models.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*models.Caller)
	return caller
}
