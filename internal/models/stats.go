// server/internal/models/stats.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DashboardStats struct {
	TotalFarmers          int64   `json:"totalFarmers"`
	TotalAgents           int64   `json:"totalAgents"`
	TotalCrops            int64   `json:"totalCrops"`
	TotalPests            int64   `json:"totalPests"`
	ActiveFarmers         int64   `json:"activeFarmers"`
	ActiveAgents          int64   `json:"activeAgents"`
	AverageCropsPerFarmer float64 `json:"averageCropsPerFarmer"`
}

// UserActivity is one row of the users-by-role listing. ActivityDetails holds
// []CropActivity for farmers and []PestActivity for agents.
type UserActivity struct {
	ID              primitive.ObjectID `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	FarmLocation    string             `json:"farmLocation,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	ActivityCount   int                `json:"activityCount"`
	ActivityDetails any                `json:"activityDetails"`
}

type CropActivity struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	PlantingDate time.Time `json:"plantingDate"`
	Location     string    `json:"location"`
}

type PestActivity struct {
	Name               string `json:"name"`
	ScientificName     string `json:"scientificName,omitempty"`
	AffectedCropsCount int    `json:"affectedCropsCount"`
}

type TimelineEntry struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Crops int64  `json:"crops"`
	Pests int64  `json:"pests"`
}

type ActivityReport struct {
	NewUsers    int64           `json:"newUsers"`
	NewCrops    int64           `json:"newCrops"`
	PestReports int64           `json:"pestReports"`
	Timeline    []TimelineEntry `json:"timeline"`
}
