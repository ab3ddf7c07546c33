package handlers

import (
	"net/http"

	"pest-tracker-api-server/internal/api/middleware"
	"pest-tracker-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

// MaxImageSize caps a single report image upload.
const MaxImageSize = 10 << 20

type ReportHandler struct {
	Responder
	Reports *service.ReportService
}

type CreateReportRequest struct {
	Location     string `json:"location" binding:"required"`
	Description  string `json:"description" binding:"required"`
	FirstNoticed string `json:"firstNoticed"`
}

type UpdateReportRequest struct {
	Status      string `json:"status" binding:"required"`
	ActionTaken string `json:"actionTaken"`
	Comments    string `json:"comments"`
	Success     bool   `json:"success"`
}

func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	in := service.ReportInput{Location: req.Location, Description: req.Description}
	if req.FirstNoticed != "" {
		noticed, _, err := service.ParseDate(req.FirstNoticed)
		if err != nil {
			h.Error(c, err)
			return
		}
		in.FirstNoticed = &noticed
	}

	report, err := h.Reports.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) UpdateReport(c *gin.Context) {
	reportID, err := service.ParseID(c.Param("reportId"), "Report")
	if err != nil {
		h.Error(c, err)
		return
	}
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	report, err := h.Reports.Update(c.Request.Context(), middleware.UserID(c), reportID, service.ReportUpdate{
		Status:      req.Status,
		ActionTaken: req.ActionTaken,
		Comments:    req.Comments,
		Success:     req.Success,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReports lists the caller's reports, or every report for agents and admins.
func (h *ReportHandler) GetReports(c *gin.Context) {
	reports, err := h.Reports.List(c.Request.Context(), middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) GetReportSummary(c *gin.Context) {
	start, end, err := service.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		h.Error(c, err)
		return
	}
	summary, err := h.Reports.Summary(c.Request.Context(), start, end)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UploadReportImage accepts a multipart "image" field.
func (h *ReportHandler) UploadReportImage(c *gin.Context) {
	reportID, err := service.ParseID(c.Param("reportId"), "Report")
	if err != nil {
		h.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image file is required"})
		return
	}
	if fileHeader.Size > MaxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image is too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.Error(c, err)
		return
	}
	defer file.Close()

	report, err := h.Reports.AttachImage(c.Request.Context(), middleware.UserID(c), reportID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
