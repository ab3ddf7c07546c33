package service

import (
	"context"
	"testing"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStatsWithNoFarmers(t *testing.T) {
	f := newFixture(t)

	stats, err := f.svc.Admin.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{}, *stats)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	busy := f.user(t, "busy", models.RoleFarmer)
	f.user(t, "idle", models.RoleFarmer)
	f.user(t, "idle2", models.RoleFarmer)
	agent := f.user(t, "agent", models.RolePestControl)
	f.user(t, "lazy", models.RolePestControl)
	f.user(t, "root", models.RoleAdmin)

	f.crop(t, busy, "A")
	maize := f.crop(t, busy, "B")
	f.pest(t, agent, "Aphid", maize.ID)

	stats, err := f.svc.Admin.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalFarmers)
	assert.Equal(t, int64(2), stats.TotalAgents)
	assert.Equal(t, int64(2), stats.TotalCrops)
	assert.Equal(t, int64(1), stats.TotalPests)
	assert.Equal(t, int64(1), stats.ActiveFarmers)
	assert.Equal(t, int64(1), stats.ActiveAgents)
	assert.Equal(t, 0.67, stats.AverageCropsPerFarmer)
}

func TestAveragePerFarmer(t *testing.T) {
	assert.Equal(t, 0.0, averagePerFarmer(10, 0))
	assert.Equal(t, 1.5, averagePerFarmer(3, 2))
	assert.Equal(t, 0.33, averagePerFarmer(1, 3))
	assert.Equal(t, 2.0, averagePerFarmer(4, 2))
}

func TestUsersByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)
	f.user(t, "newbie", models.RoleFarmer)
	agent := f.user(t, "agent", models.RolePestControl)
	crop := f.crop(t, farmer, "Maize")
	f.pest(t, agent, "Aphid", crop.ID)

	_, err := f.svc.Admin.UsersByRole(ctx, models.RoleAdmin)
	requireKind(t, err, apperror.KindValidation)

	farmers, err := f.svc.Admin.UsersByRole(ctx, models.RoleFarmer)
	require.NoError(t, err)
	require.Len(t, farmers, 2)
	byName := map[string]models.UserActivity{}
	for _, u := range farmers {
		byName[u.Name] = u
	}
	assert.Equal(t, 1, byName["farmer"].ActivityCount)
	assert.Equal(t, "farmer's farm", byName["farmer"].FarmLocation)
	details := byName["farmer"].ActivityDetails.([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "Maize", details[0].(models.CropActivity).Name)
	assert.Equal(t, 0, byName["newbie"].ActivityCount)
	assert.Empty(t, byName["newbie"].ActivityDetails)

	agents, err := f.svc.Admin.UsersByRole(ctx, models.RolePestControl)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, 1, agents[0].ActivityCount)
	pest := agents[0].ActivityDetails.([]any)[0].(models.PestActivity)
	assert.Equal(t, models.PestActivity{Name: "Aphid", AffectedCropsCount: 1}, pest)
}

func TestActivityReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Set(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	farmer := f.user(t, "farmer", models.RoleFarmer)
	agent := f.user(t, "agent", models.RolePestControl)
	f.crop(t, farmer, "A")
	f.crop(t, farmer, "B")

	f.clock.Set(time.Date(2024, 3, 3, 23, 30, 0, 0, time.UTC))
	f.pest(t, agent, "Aphid")

	f.clock.Set(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	f.crop(t, farmer, "outside the range")

	start := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	report, err := f.svc.Admin.ActivityReport(ctx, start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.NewUsers)
	assert.Equal(t, int64(2), report.NewCrops)
	assert.Equal(t, int64(1), report.PestReports)
	assert.Equal(t, []models.TimelineEntry{
		{Date: "2024-03-01", Crops: 2, Pests: 0},
		{Date: "2024-03-02", Crops: 0, Pests: 0},
		{Date: "2024-03-03", Crops: 0, Pests: 1},
		{Date: "2024-03-04", Crops: 0, Pests: 0},
	}, report.Timeline)

	_, err = f.svc.Admin.ActivityReport(ctx, end, start)
	requireKind(t, err, apperror.KindValidation)
}

func TestBuildTimelineOneEntryPerDay(t *testing.T) {
	start := time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC)

	timeline := BuildTimeline(start, end, repository.DailyCounts{"2024-02-29": 4}, nil)
	require.Len(t, timeline, 5)
	assert.Equal(t, "2024-02-27", timeline[0].Date)
	assert.Equal(t, models.TimelineEntry{Date: "2024-02-29", Crops: 4}, timeline[2])
	assert.Equal(t, "2024-03-02", timeline[4].Date)

	single := BuildTimeline(start, start, nil, nil)
	assert.Equal(t, []models.TimelineEntry{{Date: "2024-02-27"}}, single)
}

func TestParseDateRange(t *testing.T) {
	from, to, err := ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), to)

	from, to, err = ParseDateRange("2024-01-01T10:00:00Z", "2024-01-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), to)

	_, _, err = ParseDateRange("", "2024-01-01")
	requireKind(t, err, apperror.KindValidation)
	_, _, err = ParseDateRange("yesterday", "2024-01-01")
	requireKind(t, err, apperror.KindValidation)
	_, _, err = ParseDateRange("2024-02-01", "2024-01-01")
	requireKind(t, err, apperror.KindValidation)
}
