// server/internal/models/crop.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CropStatusGrowing   = "growing"
	CropStatusHarvested = "harvested"
	CropStatusFailed    = "failed"
)

// Crop is owned by exactly one farmer. Pests mirrors Pest.AffectedCrops.
type Crop struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FarmerID     primitive.ObjectID   `bson:"farmerId" json:"farmerId"`
	Name         string               `bson:"name" json:"name"`
	PlantingDate time.Time            `bson:"plantingDate" json:"plantingDate"`
	Location     string               `bson:"location" json:"location"`
	Status       string               `bson:"status" json:"status"` // growing, harvested, failed
	Pests        []primitive.ObjectID `bson:"pests" json:"pests"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// FarmerCrop is a crop as its owner sees it, with pest details expanded.
type FarmerCrop struct {
	Crop
	Pests []PestDetail `json:"pests"`
}

// CropListing is a crop as agents and admins see it.
type CropListing struct {
	Crop
	FarmerID *UserRef  `json:"farmerId"`
	Pests    []PestRef `json:"pests"`
}

// CropRef is the expanded form of a crop reference on a pest.
type CropRef struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	FarmerID primitive.ObjectID `json:"farmerId"`
}
