// Package handlers 實作 HTTP 處理器
package handlers

import (
	"context"
	"errors"
	"net/http"

	"nutritrack/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將錯誤轉為統一的 JSON 回應；debug 模式下附上原始錯誤
// 因請求期限到期而失敗的呼叫一律回應 504
func RespondError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = common.Wrap(common.ErrGatewayTimeout, err)
	}
	status, resp := common.ToResponse(err, gin.IsDebugging())
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// BindJSON 解析請求體，失敗時回應 400 並回傳 false
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondError(c, common.Wrap(common.ErrInvalidRequest, err))
		return false
	}
	return true
}
