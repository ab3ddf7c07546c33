package service

import (
	"context"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/metrics"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CropService struct {
	store *repository.Store
	now   func() time.Time
}

type RegisterCropInput struct {
	Name         string
	PlantingDate time.Time
	Location     string
}

// CropPatch lists the fields a farmer may change. Nil fields are left alone.
type CropPatch struct {
	Name         *string
	PlantingDate *time.Time
	Location     *string
	Status       *string
}

func validCropStatus(status string) bool {
	switch status {
	case models.CropStatusGrowing, models.CropStatusHarvested, models.CropStatusFailed:
		return true
	}
	return false
}

// Register creates a crop owned by farmerID with status growing.
func (s *CropService) Register(ctx context.Context, farmerID primitive.ObjectID, in RegisterCropInput) (*models.Crop, error) {
	now := s.now()
	crop := &models.Crop{
		FarmerID:     farmerID,
		Name:         in.Name,
		PlantingDate: in.PlantingDate,
		Location:     in.Location,
		Status:       models.CropStatusGrowing,
		Pests:        []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Crops.Create(ctx, crop); err != nil {
		return nil, storeErr(err, "Crop", "create crop")
	}
	metrics.CropsRegistered.Inc()
	return crop, nil
}

// Update applies patch to a crop owned by farmerID.
func (s *CropService) Update(ctx context.Context, farmerID, cropID primitive.ObjectID, patch CropPatch) (*models.Crop, error) {
	if patch.Status != nil && !validCropStatus(*patch.Status) {
		return nil, apperror.Validation("invalid crop status: %q", *patch.Status)
	}

	crop, err := s.store.Crops.FindOwned(ctx, cropID, farmerID)
	if err != nil {
		return nil, storeErr(err, "Crop", "find crop")
	}

	if patch.Name != nil {
		crop.Name = *patch.Name
	}
	if patch.PlantingDate != nil {
		crop.PlantingDate = *patch.PlantingDate
	}
	if patch.Location != nil {
		crop.Location = *patch.Location
	}
	if patch.Status != nil {
		crop.Status = *patch.Status
	}
	crop.UpdatedAt = s.now()

	if err := s.store.Crops.Update(ctx, crop); err != nil {
		return nil, storeErr(err, "Crop", "update crop")
	}
	return crop, nil
}

// ListMine returns farmerID's crops, newest first, with pest details expanded.
func (s *CropService) ListMine(ctx context.Context, farmerID primitive.ObjectID) ([]models.FarmerCrop, error) {
	crops, err := s.store.Crops.FindByFarmer(ctx, farmerID)
	if err != nil {
		return nil, storeErr(err, "Crop", "list crops")
	}

	pests, err := s.pestsFor(ctx, crops)
	if err != nil {
		return nil, err
	}

	out := make([]models.FarmerCrop, 0, len(crops))
	for _, c := range crops {
		details := make([]models.PestDetail, 0, len(c.Pests))
		for _, id := range c.Pests {
			p, ok := pests[id]
			if !ok {
				continue
			}
			details = append(details, models.PestDetail{
				ID:             p.ID,
				Name:           p.Name,
				ScientificName: p.ScientificName,
				Description:    p.Description,
				Symptoms:       p.Symptoms,
				ControlMethods: p.ControlMethods,
			})
		}
		out = append(out, models.FarmerCrop{Crop: c, Pests: details})
	}
	return out, nil
}

// ListAll returns every crop, newest first, with owner and pest names expanded.
func (s *CropService) ListAll(ctx context.Context) ([]models.CropListing, error) {
	crops, err := s.store.Crops.FindAll(ctx)
	if err != nil {
		return nil, storeErr(err, "Crop", "list crops")
	}

	pests, err := s.pestsFor(ctx, crops)
	if err != nil {
		return nil, err
	}

	farmerIDs := make([]primitive.ObjectID, 0, len(crops))
	for _, c := range crops {
		farmerIDs = append(farmerIDs, c.FarmerID)
	}
	owners, err := usersByID(ctx, s.store.Users, farmerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.CropListing, 0, len(crops))
	for _, c := range crops {
		refs := make([]models.PestRef, 0, len(c.Pests))
		for _, id := range c.Pests {
			if p, ok := pests[id]; ok {
				refs = append(refs, models.PestRef{ID: p.ID, Name: p.Name})
			}
		}
		owner := owners[c.FarmerID]
		out = append(out, models.CropListing{Crop: c, FarmerID: owner.Ref(), Pests: refs})
	}
	return out, nil
}

// Delete removes a crop owned by farmerID. Pests that list the crop in
// affectedCrops keep the dangling reference.
func (s *CropService) Delete(ctx context.Context, farmerID, cropID primitive.ObjectID) error {
	if err := s.store.Crops.DeleteOwned(ctx, cropID, farmerID); err != nil {
		return storeErr(err, "Crop", "delete crop")
	}
	return nil
}

func (s *CropService) pestsFor(ctx context.Context, crops []models.Crop) (map[primitive.ObjectID]models.Pest, error) {
	var ids []primitive.ObjectID
	for _, c := range crops {
		ids = append(ids, c.Pests...)
	}
	out := make(map[primitive.ObjectID]models.Pest)
	if len(ids) == 0 {
		return out, nil
	}
	pests, err := s.store.Pests.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "Pest", "load pests")
	}
	for _, p := range pests {
		out[p.ID] = p
	}
	return out, nil
}

// usersByID loads the given users keyed by id. Missing users are absent from the map.
func usersByID(ctx context.Context, users repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User)
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "User", "load users")
	}
	for i := range found {
		out[found[i].ID] = &found[i]
	}
	return out, nil
}
