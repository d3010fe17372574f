package handlers

import (
	"net/http"
	"strings"

	"nutritrack/internal/core/catalog"
	"nutritrack/internal/core/normalizer"
	"nutritrack/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 食物目錄與食材解析
type CatalogHandler struct {
	svc *catalog.Service
}

// NewCatalogHandler 創建目錄處理器
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// NutritionRequest 營養試算請求
type NutritionRequest struct {
	Quantity float64 `json:"quantity" binding:"gte=0"`
	Unit     string  `json:"unit"`
}

// ListFoods GET /foods
func (h *CatalogHandler) ListFoods(c *gin.Context) {
	foods, err := h.svc.Foods(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"foods": foods,
		"count": len(foods),
	})
}

// GetFood GET /foods/:id
func (h *CatalogHandler) GetFood(c *gin.Context) {
	f, err := h.svc.Food(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Nutrition POST /foods/:id/nutrition
func (h *CatalogHandler) Nutrition(c *gin.Context) {
	var req NutritionRequest
	if !BindJSON(c, &req) {
		return
	}
	n, grams, err := h.svc.Nutrition(c.Request.Context(), c.Param("id"), req.Quantity, req.Unit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"food_id":   c.Param("id"),
		"quantity":  req.Quantity,
		"unit":      req.Unit,
		"grams":     grams,
		"nutrition": n,
	})
}

// Resolve GET /ingredients/resolve?name=
func (h *CatalogHandler) Resolve(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		RespondError(c, common.NewValidationError("query parameter name is required"))
		return
	}
	res, err := h.svc.Resolve(c.Request.Context(), name)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Normalize GET /ingredients/normalize?name=
// 以逗號分隔的多個名稱會逐一正規化
func (h *CatalogHandler) Normalize(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		RespondError(c, common.NewValidationError("query parameter name is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input":      name,
		"normalized": normalizer.Normalize(name),
		"items":      normalizer.NormalizeAll(normalizer.SplitList(name)),
	})
}

// SaveMapping POST /ingredients/mappings
func (h *CatalogHandler) SaveMapping(c *gin.Context) {
	var req catalog.ManualMappingRequest
	if !BindJSON(c, &req) {
		return
	}
	m, err := h.svc.SaveManualMapping(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}
