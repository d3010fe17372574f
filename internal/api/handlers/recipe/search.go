// Package recipe 食譜搜尋處理器
package recipe

import (
	"net/http"

	"nutritrack/internal/api/handlers"
	"nutritrack/internal/api/middleware"
	recipeService "nutritrack/internal/core/recipe"
	"nutritrack/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜處理程序
type Handler struct {
	searchService *recipeService.SearchService
}

// NewHandler 創建新的食譜處理程序
func NewHandler(searchService *recipeService.SearchService) *Handler {
	return &Handler{searchService: searchService}
}

// HandleSearch POST /recipes/search
func (h *Handler) HandleSearch(c *gin.Context) {
	var req recipeService.SearchRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	common.LogInfo("開始處理食譜搜尋請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("query", req.Query),
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Bool("include_public", req.IncludePublic),
		zap.Bool("include_private", req.IncludePrivate),
	)

	resp, err := h.searchService.Search(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
