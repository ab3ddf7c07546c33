package handlers

import (
	"net/http"

	"pest-tracker-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the read-only admin reporting views.
type AdminHandler struct {
	Responder
	Admin *service.AdminService
}

func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.Admin.DashboardStats(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetUsersByRole(c *gin.Context) {
	users, err := h.Admin.UsersByRole(c.Request.Context(), c.Param("role"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetActivityReport expects startDate and endDate query parameters.
func (h *AdminHandler) GetActivityReport(c *gin.Context) {
	start, end, err := service.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		h.Error(c, err)
		return
	}
	report, err := h.Admin.ActivityReport(c.Request.Context(), start, end)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
