package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/metrics"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportService struct {
	store    *repository.Store
	notifier Notifier
	images   ImageStore
	now      func() time.Time
}

type ReportInput struct {
	Location     string
	Description  string
	FirstNoticed *time.Time
}

// ReportUpdate is what an agent sends when moving a report along.
// ActionTaken, Comments and Success are only recorded on completion.
type ReportUpdate struct {
	Status      string
	ActionTaken string
	Comments    string
	Success     bool
}

func validReportStatus(status string) bool {
	switch status {
	case models.ReportStatusPending, models.ReportStatusInProgress, models.ReportStatusCompleted:
		return true
	}
	return false
}

// Create files a pending report for farmerID. FirstNoticed defaults to now.
func (s *ReportService) Create(ctx context.Context, farmerID primitive.ObjectID, in ReportInput) (*models.Report, error) {
	now := s.now()
	firstNoticed := now
	if in.FirstNoticed != nil {
		firstNoticed = *in.FirstNoticed
	}
	report := &models.Report{
		FarmerID:     farmerID,
		Location:     in.Location,
		Description:  in.Description,
		FirstNoticed: firstNoticed,
		Status:       models.ReportStatusPending,
		Images:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Reports.Create(ctx, report); err != nil {
		return nil, storeErr(err, "Report", "create report")
	}
	metrics.ReportsFiled.Inc()
	return report, nil
}

// Update sets the report status. Any valid status may be written from any
// other; completing stamps the acting agent's pest-control action.
func (s *ReportService) Update(ctx context.Context, actorID, reportID primitive.ObjectID, upd ReportUpdate) (*models.Report, error) {
	if !validReportStatus(upd.Status) {
		return nil, apperror.Validation("invalid report status: %q", upd.Status)
	}

	report, err := s.store.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, "Report", "find report")
	}

	now := s.now()
	report.Status = upd.Status
	if upd.Status == models.ReportStatusCompleted {
		report.PestControlAction = &models.PestControlAction{
			AgentID:     actorID,
			ActionTaken: upd.ActionTaken,
			Comments:    upd.Comments,
			Success:     upd.Success,
			CompletedAt: now,
		}
		metrics.ReportsCompleted.WithLabelValues(strconv.FormatBool(upd.Success)).Inc()
	}
	report.UpdatedAt = now

	if err := s.store.Reports.Update(ctx, report); err != nil {
		return nil, storeErr(err, "Report", "update report")
	}

	s.notifier.Notify(report.FarmerID.Hex(), Notification{
		Type:    "report.status",
		Message: fmt.Sprintf("Your report at %s is now %s", report.Location, report.Status),
		Data:    map[string]any{"reportId": report.ID, "status": report.Status},
		SentAt:  now,
	})
	return report, nil
}

// List returns reports visible to the caller, newest first. Farmers only see
// their own.
func (s *ReportService) List(ctx context.Context, userID primitive.ObjectID, role string) ([]models.ReportListing, error) {
	filter := repository.ReportFilter{}
	if role == models.RoleFarmer {
		filter.FarmerID = userID
	}
	reports, err := s.store.Reports.Find(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "Report", "list reports")
	}

	var ids []primitive.ObjectID
	for _, r := range reports {
		ids = append(ids, r.FarmerID)
		if r.PestControlAction != nil {
			ids = append(ids, r.PestControlAction.AgentID)
		}
	}
	users, err := usersByID(ctx, s.store.Users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReportListing, 0, len(reports))
	for _, r := range reports {
		listing := models.ReportListing{Report: r, FarmerID: users[r.FarmerID].Ref()}
		if r.PestControlAction != nil {
			listing.PestControlAction = &models.ActionListing{
				PestControlAction: *r.PestControlAction,
				AgentID:           users[r.PestControlAction.AgentID].Ref(),
			}
		}
		out = append(out, listing)
	}
	return out, nil
}

// Summary counts reports created in [start, end]. SuccessRate is the share of
// all reports that were completed successfully, nil when there are none.
func (s *ReportService) Summary(ctx context.Context, start, end time.Time) (*models.ReportSummary, error) {
	reports, err := s.store.Reports.FindCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, storeErr(err, "Report", "load reports")
	}

	summary := &models.ReportSummary{Total: len(reports)}
	successful := 0
	for _, r := range reports {
		switch r.Status {
		case models.ReportStatusCompleted:
			summary.Completed++
			if r.PestControlAction != nil && r.PestControlAction.Success {
				successful++
			}
		case models.ReportStatusPending:
			summary.Pending++
		case models.ReportStatusInProgress:
			summary.InProgress++
		}
	}
	if summary.Total > 0 {
		rate := float64(successful) / float64(summary.Total)
		summary.SuccessRate = &rate
	}
	return summary, nil
}

// AttachImage uploads an image for a report owned by farmerID and records its URL.
func (s *ReportService) AttachImage(ctx context.Context, farmerID, reportID primitive.ObjectID, filename, contentType string, body io.Reader) (*models.Report, error) {
	if s.images == nil {
		return nil, apperror.Unavailable("Image uploads are not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperror.Validation("file must be an image, got %q", contentType)
	}

	report, err := s.store.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, "Report", "find report")
	}
	if report.FarmerID != farmerID {
		return nil, apperror.NotFound("Report")
	}

	key := fmt.Sprintf("reports/%s/%s%s", reportID.Hex(), uuid.New().String(), strings.ToLower(path.Ext(filename)))
	url, err := s.images.UploadFile(ctx, body, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	if err := s.store.Reports.AddImage(ctx, reportID, url); err != nil {
		return nil, storeErr(err, "Report", "attach image")
	}
	report.Images = append(report.Images, url)
	return report, nil
}
