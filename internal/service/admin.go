package service

import (
	"context"
	"math"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// maxActivityDays bounds the timeline so one request cannot ask for centuries.
const maxActivityDays = 3660

type AdminService struct {
	store *repository.Store
}

// DashboardStats gathers the admin headline numbers. The independent reads run concurrently.
func (s *AdminService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var (
		farmers, agents       []models.User
		totalCrops, totalPest int64
		cropsByFarmer         map[primitive.ObjectID]int64
		pestsByAuthor         map[primitive.ObjectID]int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		farmers, err = s.store.Users.FindByRole(ctx, models.RoleFarmer)
		return err
	})
	g.Go(func() (err error) {
		agents, err = s.store.Users.FindByRole(ctx, models.RolePestControl)
		return err
	})
	g.Go(func() (err error) {
		totalCrops, err = s.store.Crops.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		totalPest, err = s.store.Pests.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		cropsByFarmer, err = s.store.Crops.CountByFarmer(ctx)
		return err
	})
	g.Go(func() (err error) {
		pestsByAuthor, err = s.store.Pests.CountByAuthor(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "Stats", "gather dashboard stats")
	}

	stats := &models.DashboardStats{
		TotalFarmers:          int64(len(farmers)),
		TotalAgents:           int64(len(agents)),
		TotalCrops:            totalCrops,
		TotalPests:            totalPest,
		ActiveFarmers:         countActive(farmers, cropsByFarmer),
		ActiveAgents:          countActive(agents, pestsByAuthor),
		AverageCropsPerFarmer: averagePerFarmer(totalCrops, int64(len(farmers))),
	}
	return stats, nil
}

func countActive(users []models.User, owned map[primitive.ObjectID]int64) int64 {
	var n int64
	for _, u := range users {
		if owned[u.ID] > 0 {
			n++
		}
	}
	return n
}

// averagePerFarmer rounds to two decimals and is 0 when there are no farmers.
func averagePerFarmer(crops, farmers int64) float64 {
	if farmers == 0 {
		return 0
	}
	return math.Round(float64(crops)/float64(farmers)*100) / 100
}

// UsersByRole lists farmers or agents with what they have contributed.
func (s *AdminService) UsersByRole(ctx context.Context, role string) ([]models.UserActivity, error) {
	if role != models.RoleFarmer && role != models.RolePestControl {
		return nil, apperror.Validation("Invalid role specified")
	}

	users, err := s.store.Users.FindByRole(ctx, role)
	if err != nil {
		return nil, storeErr(err, "User", "list users")
	}
	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	details := make(map[primitive.ObjectID][]any)
	if role == models.RoleFarmer {
		crops, err := s.store.Crops.FindByFarmers(ctx, ids)
		if err != nil {
			return nil, storeErr(err, "Crop", "load crops")
		}
		for _, c := range crops {
			details[c.FarmerID] = append(details[c.FarmerID], models.CropActivity{
				Name:         c.Name,
				Status:       c.Status,
				PlantingDate: c.PlantingDate,
				Location:     c.Location,
			})
		}
	} else {
		pests, err := s.store.Pests.FindByAuthors(ctx, ids)
		if err != nil {
			return nil, storeErr(err, "Pest", "load pests")
		}
		for _, p := range pests {
			details[p.AddedBy] = append(details[p.AddedBy], models.PestActivity{
				Name:               p.Name,
				ScientificName:     p.ScientificName,
				AffectedCropsCount: len(p.AffectedCrops),
			})
		}
	}

	out := make([]models.UserActivity, 0, len(users))
	for _, u := range users {
		activity := details[u.ID]
		if activity == nil {
			activity = []any{}
		}
		out = append(out, models.UserActivity{
			ID:              u.ID,
			Name:            u.Name,
			Email:           u.Email,
			FarmLocation:    u.FarmLocation,
			CreatedAt:       u.CreatedAt,
			ActivityCount:   len(activity),
			ActivityDetails: activity,
		})
	}
	return out, nil
}

// ActivityReport counts what was created between the start of start's day
// and the end of end's day (UTC), with a per-day timeline.
func (s *AdminService) ActivityReport(ctx context.Context, start, end time.Time) (*models.ActivityReport, error) {
	from, to := startOfDay(start), endOfDay(end)
	if to.Before(from) {
		return nil, apperror.Validation("endDate must not be before startDate")
	}
	if to.Sub(from) > maxActivityDays*24*time.Hour {
		return nil, apperror.Validation("date range must not exceed %d days", maxActivityDays)
	}

	report := &models.ActivityReport{}
	var cropDays, pestDays repository.DailyCounts

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.NewUsers, err = s.store.Users.CountCreatedBetween(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		report.NewCrops, err = s.store.Crops.CountCreatedBetween(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		report.PestReports, err = s.store.Pests.CountCreatedBetween(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		cropDays, err = s.store.Crops.DailyCreated(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		pestDays, err = s.store.Pests.DailyCreated(ctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "Activity", "build activity report")
	}

	report.Timeline = BuildTimeline(from, to, cropDays, pestDays)
	return report, nil
}

// BuildTimeline emits one entry per UTC calendar day from start to end
// inclusive. Days absent from the counts are zero.
func BuildTimeline(start, end time.Time, crops, pests repository.DailyCounts) []models.TimelineEntry {
	timeline := []models.TimelineEntry{}
	last := startOfDay(end)
	for day := startOfDay(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		timeline = append(timeline, models.TimelineEntry{
			Date:  key,
			Crops: crops[key],
			Pests: pests[key],
		})
	}
	return timeline
}
