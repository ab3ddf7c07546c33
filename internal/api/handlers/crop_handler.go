package handlers

import (
	"net/http"

	"pest-tracker-api-server/internal/api/middleware"
	"pest-tracker-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

type CropHandler struct {
	Responder
	Crops *service.CropService
}

type CreateCropRequest struct {
	Name         string `json:"name" binding:"required"`
	PlantingDate string `json:"plantingDate" binding:"required"`
	Location     string `json:"location" binding:"required"`
}

// UpdateCropRequest only carries the fields a farmer may change.
type UpdateCropRequest struct {
	Name         *string `json:"name"`
	PlantingDate *string `json:"plantingDate"`
	Location     *string `json:"location"`
	Status       *string `json:"status" binding:"omitempty,oneof=growing harvested failed"`
}

func (h *CropHandler) RegisterCrop(c *gin.Context) {
	var req CreateCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	planted, _, err := service.ParseDate(req.PlantingDate)
	if err != nil {
		h.Error(c, err)
		return
	}

	crop, err := h.Crops.Register(c.Request.Context(), middleware.UserID(c), service.RegisterCropInput{
		Name:         req.Name,
		PlantingDate: planted,
		Location:     req.Location,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, crop)
}

func (h *CropHandler) UpdateCrop(c *gin.Context) {
	cropID, err := service.ParseID(c.Param("cropId"), "Crop")
	if err != nil {
		h.Error(c, err)
		return
	}
	var req UpdateCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	patch := service.CropPatch{Name: req.Name, Location: req.Location, Status: req.Status}
	if req.PlantingDate != nil {
		planted, _, err := service.ParseDate(*req.PlantingDate)
		if err != nil {
			h.Error(c, err)
			return
		}
		patch.PlantingDate = &planted
	}

	crop, err := h.Crops.Update(c.Request.Context(), middleware.UserID(c), cropID, patch)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, crop)
}

// GetFarmerCrops lists the caller's own crops.
func (h *CropHandler) GetFarmerCrops(c *gin.Context) {
	crops, err := h.Crops.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (h *CropHandler) GetAllCrops(c *gin.Context) {
	crops, err := h.Crops.ListAll(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (h *CropHandler) DeleteCrop(c *gin.Context) {
	cropID, err := service.ParseID(c.Param("cropId"), "Crop")
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.Crops.Delete(c.Request.Context(), middleware.UserID(c), cropID); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Crop deleted successfully"})
}

