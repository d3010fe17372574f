package handlers

import (
	"net/http"

	"nutritrack/internal/api/middleware"
	"nutritrack/internal/core/consumption"

	"github.com/gin-gonic/gin"
)

// ConsumptionHandler 消費紀錄與統計
type ConsumptionHandler struct {
	svc *consumption.Service
}

// NewConsumptionHandler 創建消費紀錄處理器
func NewConsumptionHandler(svc *consumption.Service) *ConsumptionHandler {
	return &ConsumptionHandler{svc: svc}
}

// Record POST /consumption
func (h *ConsumptionHandler) Record(c *gin.Context) {
	var req consumption.Request
	if !BindJSON(c, &req) {
		return
	}
	res, err := h.svc.Record(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// History GET /consumption?start=&end=
func (h *ConsumptionHandler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), middleware.UserID(c), c.Query("start"), c.Query("end"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}
