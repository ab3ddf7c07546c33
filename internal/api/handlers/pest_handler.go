package handlers

import (
	"net/http"

	"pest-tracker-api-server/internal/api/middleware"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PestHandler struct {
	Responder
	Pests *service.PestService
}

type CreatePestRequest struct {
	Name           string                 `json:"name" binding:"required"`
	ScientificName string                 `json:"scientificName"`
	Description    string                 `json:"description"`
	Symptoms       []string               `json:"symptoms"`
	ControlMethods []models.ControlMethod `json:"controlMethods" binding:"dive"`
	AffectedCrops  []string               `json:"affectedCrops"`
}

// UpdatePestRequest only carries the fields an agent may change.
// A present affectedCrops replaces the whole list.
type UpdatePestRequest struct {
	Name           *string                 `json:"name"`
	ScientificName *string                 `json:"scientificName"`
	Description    *string                 `json:"description"`
	Symptoms       *[]string               `json:"symptoms"`
	ControlMethods *[]models.ControlMethod `json:"controlMethods"`
	AffectedCrops  *[]string               `json:"affectedCrops"`
}

func (h *PestHandler) CreatePest(c *gin.Context) {
	var req CreatePestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	crops, err := service.ParseIDs(req.AffectedCrops, "affectedCrops")
	if err != nil {
		h.Error(c, err)
		return
	}

	pest, err := h.Pests.Create(c.Request.Context(), middleware.UserID(c), service.PestInput{
		Name:           req.Name,
		ScientificName: req.ScientificName,
		Description:    req.Description,
		Symptoms:       req.Symptoms,
		ControlMethods: req.ControlMethods,
		AffectedCrops:  crops,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, pest)
}

func (h *PestHandler) UpdatePest(c *gin.Context) {
	pestID, err := service.ParseID(c.Param("pestId"), "Pest")
	if err != nil {
		h.Error(c, err)
		return
	}
	var req UpdatePestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	patch := service.PestPatch{
		Name:           req.Name,
		ScientificName: req.ScientificName,
		Description:    req.Description,
		Symptoms:       req.Symptoms,
		ControlMethods: req.ControlMethods,
	}
	if req.AffectedCrops != nil {
		var crops []primitive.ObjectID
		if crops, err = service.ParseIDs(*req.AffectedCrops, "affectedCrops"); err != nil {
			h.Error(c, err)
			return
		}
		patch.AffectedCrops = &crops
	}

	pest, err := h.Pests.Update(c.Request.Context(), middleware.UserID(c), pestID, patch)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pest)
}

func (h *PestHandler) GetAllPests(c *gin.Context) {
	pests, err := h.Pests.ListAll(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pests)
}

func (h *PestHandler) DeletePest(c *gin.Context) {
	pestID, err := service.ParseID(c.Param("pestId"), "Pest")
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.Pests.Delete(c.Request.Context(), middleware.UserID(c), pestID); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pest deleted successfully"})
}
