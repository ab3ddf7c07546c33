// server/internal/models/pest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EffectivenessLow    = "low"
	EffectivenessMedium = "medium"
	EffectivenessHigh   = "high"
)

type ControlMethod struct {
	Method               string   `bson:"method" json:"method" binding:"required"`
	Description          string   `bson:"description,omitempty" json:"description,omitempty"`
	Effectiveness        string   `bson:"effectiveness" json:"effectiveness" binding:"required,oneof=low medium high"`
	ApplicationFrequency string   `bson:"applicationFrequency,omitempty" json:"applicationFrequency,omitempty"`
	Precautions          []string `bson:"precautions" json:"precautions"`
}

// Pest is authored by a pest-control agent (AddedBy).
// AffectedCrops mirrors Crop.Pests.
type Pest struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	ScientificName string               `bson:"scientificName,omitempty" json:"scientificName,omitempty"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	Symptoms       []string             `bson:"symptoms" json:"symptoms"`
	ControlMethods []ControlMethod      `bson:"controlMethods" json:"controlMethods"`
	AffectedCrops  []primitive.ObjectID `bson:"affectedCrops" json:"affectedCrops"`
	AddedBy        primitive.ObjectID   `bson:"addedBy" json:"addedBy"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PestDetail is what a farmer sees of a pest attached to one of their crops.
type PestDetail struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	ScientificName string             `json:"scientificName,omitempty"`
	Description    string             `json:"description,omitempty"`
	Symptoms       []string           `json:"symptoms"`
	ControlMethods []ControlMethod    `json:"controlMethods"`
}

type PestRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// PestListing is a pest with its crops and author expanded.
type PestListing struct {
	Pest
	AffectedCrops []CropRef `json:"affectedCrops"`
	AddedBy       *UserRef  `json:"addedBy"`
}
