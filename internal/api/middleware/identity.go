package middleware

import (
	"strings"

	"nutritrack/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HeaderUserID 由上游認證閘道設定的使用者識別
const HeaderUserID = "X-User-ID"

const userIDKey = "user_id"

// Identity 讀取使用者識別並放入 context
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

// RequireUser 沒有使用者識別時回傳 401
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			status, resp := common.ToResponse(common.ErrUnauthorized, false)
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.Next()
	}
}

// UserID 目前請求的使用者，未提供時為空字串
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
