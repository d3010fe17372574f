package handlers

import (
	"net/http"

	"nutritrack/internal/api/middleware"
	"nutritrack/internal/core/stats"
	"nutritrack/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Stats GET /stats
func (h *ConsumptionHandler) Stats(c *gin.Context) {
	us, err := h.svc.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, us)
}

// PeriodStats GET /stats/:period/:label
func (h *ConsumptionHandler) PeriodStats(c *gin.Context) {
	period, err := stats.ParsePeriod(c.Param("period"))
	if err != nil {
		RespondError(c, err)
		return
	}
	ps, err := h.svc.PeriodStats(c.Request.Context(), middleware.UserID(c), period, c.Param("label"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if period == stats.PeriodDaily {
		c.JSON(http.StatusOK, stats.NewDailySummary(ps))
		return
	}
	c.JSON(http.StatusOK, ps)
}

// Range GET /stats/range?start=&end=
func (h *ConsumptionHandler) Range(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		RespondError(c, common.NewValidationError("query parameters start and end are required"))
		return
	}
	ps, err := h.svc.Range(c.Request.Context(), middleware.UserID(c), start, end)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// Rebuild POST /stats/rebuild
func (h *ConsumptionHandler) Rebuild(c *gin.Context) {
	us, err := h.svc.Rebuild(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, us)
}
