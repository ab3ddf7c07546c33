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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegisterCropThenListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)

	plantingDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Crops.Register(ctx, farmer, RegisterCropInput{Name: "Maize", PlantingDate: plantingDate, Location: "Plot A"})
	require.NoError(t, err)

	crops, err := f.svc.Crops.ListMine(ctx, farmer)
	require.NoError(t, err)
	require.Len(t, crops, 1)
	assert.Equal(t, "Maize", crops[0].Name)
	assert.Equal(t, farmer, crops[0].FarmerID)
	assert.Equal(t, models.CropStatusGrowing, crops[0].Status)
	assert.True(t, plantingDate.Equal(crops[0].PlantingDate))
	assert.Empty(t, crops[0].Pests)
}

func TestListMineExpandsPestDetailsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)
	agent := f.user(t, "agent", models.RolePestControl)

	older := f.crop(t, farmer, "Beans")
	f.clock.Set(f.clock.Now().Add(time.Hour))
	newer := f.crop(t, farmer, "Maize")
	f.pest(t, agent, "Aphid", newer.ID)

	crops, err := f.svc.Crops.ListMine(ctx, farmer)
	require.NoError(t, err)
	require.Len(t, crops, 2)
	assert.Equal(t, newer.ID, crops[0].ID)
	assert.Equal(t, older.ID, crops[1].ID)
	require.Len(t, crops[0].Pests, 1)
	assert.Equal(t, "Aphid", crops[0].Pests[0].Name)
	assert.Equal(t, []string{"yellow leaves"}, crops[0].Pests[0].Symptoms)
	require.Len(t, crops[0].Pests[0].ControlMethods, 1)
}

func TestCropOwnershipIsEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", models.RoleFarmer)
	other := f.user(t, "other", models.RoleFarmer)
	crop := f.crop(t, owner, "Maize")

	name := "Stolen"
	_, err := f.svc.Crops.Update(ctx, other, crop.ID, CropPatch{Name: &name})
	requireKind(t, err, apperror.KindNotFound)

	err = f.svc.Crops.Delete(ctx, other, crop.ID)
	requireKind(t, err, apperror.KindNotFound)

	mine, err := f.svc.Crops.ListMine(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Maize", mine[0].Name)
}

func TestUpdateCropAllowList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)
	crop := f.crop(t, farmer, "Maize")

	status := models.CropStatusHarvested
	location := "Plot B"
	f.clock.Set(f.clock.Now().Add(time.Minute))
	updated, err := f.svc.Crops.Update(ctx, farmer, crop.ID, CropPatch{Status: &status, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, models.CropStatusHarvested, updated.Status)
	assert.Equal(t, "Plot B", updated.Location)
	assert.Equal(t, "Maize", updated.Name)
	assert.Equal(t, farmer, updated.FarmerID)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	bad := "rotten"
	_, err = f.svc.Crops.Update(ctx, farmer, crop.ID, CropPatch{Status: &bad})
	requireKind(t, err, apperror.KindValidation)
}

func TestDeleteCrop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)
	crop := f.crop(t, farmer, "Maize")

	require.NoError(t, f.svc.Crops.Delete(ctx, farmer, crop.ID))
	err := f.svc.Crops.Delete(ctx, farmer, crop.ID)
	requireKind(t, err, apperror.KindNotFound)
}

func TestListAllExpandsOwnerAndPestNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "amina", models.RoleFarmer)
	agent := f.user(t, "agent", models.RolePestControl)
	crop := f.crop(t, farmer, "Maize")
	f.pest(t, agent, "Armyworm", crop.ID)

	crops, err := f.svc.Crops.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, crops, 1)
	require.NotNil(t, crops[0].FarmerID)
	assert.Equal(t, "amina", crops[0].FarmerID.Name)
	require.Len(t, crops[0].Pests, 1)
	assert.Equal(t, "Armyworm", crops[0].Pests[0].Name)
}

// staleCrops hands out the crop as read, then lets a concurrent writer run
// before the caller writes its update back.
type staleCrops struct {
	repository.CropRepository
	between func()
}

func (s *staleCrops) FindOwned(ctx context.Context, id, farmerID primitive.ObjectID) (*models.Crop, error) {
	c, err := s.CropRepository.FindOwned(ctx, id, farmerID)
	if err == nil && s.between != nil {
		s.between()
	}
	return c, err
}

func TestUpdateCropKeepsConcurrentPestLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farmer := f.user(t, "farmer", models.RoleFarmer)
	crop := f.crop(t, farmer, "Maize")

	pestID := primitive.NewObjectID()
	crops := f.store.Crops
	f.store.Crops = &staleCrops{
		CropRepository: crops,
		between: func() {
			require.NoError(t, crops.AddPest(ctx, []primitive.ObjectID{crop.ID}, pestID))
		},
	}

	status := models.CropStatusHarvested
	updated, err := f.svc.Crops.Update(ctx, farmer, crop.ID, CropPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.CropStatusHarvested, updated.Status)

	stored, err := crops.FindOwned(ctx, crop.ID, farmer)
	require.NoError(t, err)
	assert.Equal(t, models.CropStatusHarvested, stored.Status)
	assert.Equal(t, []primitive.ObjectID{pestID}, stored.Pests)
}
