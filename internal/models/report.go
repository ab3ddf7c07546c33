// server/internal/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReportStatusPending    = "pending"
	ReportStatusInProgress = "in-progress"
	ReportStatusCompleted  = "completed"
)

// PestControlAction is stamped by the agent that completes a report.
type PestControlAction struct {
	AgentID     primitive.ObjectID `bson:"agentId" json:"agentId"`
	ActionTaken string             `bson:"actionTaken" json:"actionTaken"`
	Comments    string             `bson:"comments" json:"comments"`
	Success     bool               `bson:"success" json:"success"`
	CompletedAt time.Time          `bson:"completedAt" json:"completedAt"`
}

type Report struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID          primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Location          string             `bson:"location" json:"location"`
	Description       string             `bson:"description" json:"description"`
	FirstNoticed      time.Time          `bson:"firstNoticed" json:"firstNoticed"`
	Status            string             `bson:"status" json:"status"` // pending, in-progress, completed
	PestControlAction *PestControlAction `bson:"pestControlAction,omitempty" json:"pestControlAction,omitempty"`
	Images            []string           `bson:"images" json:"images"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type ActionListing struct {
	PestControlAction
	AgentID *UserRef `json:"agentId"`
}

// ReportListing is a report with farmer and acting agent expanded.
type ReportListing struct {
	Report
	FarmerID          *UserRef       `json:"farmerId"`
	PestControlAction *ActionListing `json:"pestControlAction,omitempty"`
}

// ReportSummary aggregates reports over a date range. SuccessRate is nil
// when no report falls in the range.
type ReportSummary struct {
	Total       int      `json:"total"`
	Completed   int      `json:"completed"`
	Pending     int      `json:"pending"`
	InProgress  int      `json:"inProgress"`
	SuccessRate *float64 `json:"successRate"`
}
