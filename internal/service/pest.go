package service

import (
	"context"
	"fmt"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/log"
	"pest-tracker-api-server/internal/metrics"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PestService struct {
	store    *repository.Store
	notifier Notifier
	now      func() time.Time
}

type PestInput struct {
	Name           string
	ScientificName string
	Description    string
	Symptoms       []string
	ControlMethods []models.ControlMethod
	AffectedCrops  []primitive.ObjectID
}

// PestPatch lists the fields an agent may change. Nil fields are left alone;
// a non-nil AffectedCrops replaces the whole list and resyncs Crop.pests.
type PestPatch struct {
	Name           *string
	ScientificName *string
	Description    *string
	Symptoms       *[]string
	ControlMethods *[]models.ControlMethod
	AffectedCrops  *[]primitive.ObjectID
}

func validateControlMethods(methods []models.ControlMethod) error {
	for i, m := range methods {
		if m.Method == "" {
			return apperror.Validation("controlMethods[%d].method is required", i)
		}
		switch m.Effectiveness {
		case models.EffectivenessLow, models.EffectivenessMedium, models.EffectivenessHigh:
		default:
			return apperror.Validation("controlMethods[%d].effectiveness must be low, medium or high", i)
		}
	}
	return nil
}

func normalizeMethods(methods []models.ControlMethod) []models.ControlMethod {
	out := make([]models.ControlMethod, len(methods))
	for i, m := range methods {
		if m.Precautions == nil {
			m.Precautions = []string{}
		}
		out[i] = m
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Create stores a pest authored by agentID and adds it to every affected crop.
func (s *PestService) Create(ctx context.Context, agentID primitive.ObjectID, in PestInput) (*models.Pest, error) {
	if err := validateControlMethods(in.ControlMethods); err != nil {
		return nil, err
	}

	now := s.now()
	pest := &models.Pest{
		ID:             primitive.NewObjectID(),
		Name:           in.Name,
		ScientificName: in.ScientificName,
		Description:    in.Description,
		Symptoms:       orEmpty(in.Symptoms),
		ControlMethods: normalizeMethods(in.ControlMethods),
		AffectedCrops:  orEmpty(in.AffectedCrops),
		AddedBy:        agentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Pests.Create(ctx, pest); err != nil {
			return fmt.Errorf("failed to create pest: %w", err)
		}
		if err := s.store.Crops.AddPest(ctx, pest.AffectedCrops, pest.ID); err != nil {
			return fmt.Errorf("failed to link pest to crops: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PestsRecorded.Inc()
	s.alertOwners(ctx, pest, pest.AffectedCrops)
	return pest, nil
}

// Update applies patch to a pest authored by agentID.
func (s *PestService) Update(ctx context.Context, agentID, pestID primitive.ObjectID, patch PestPatch) (*models.Pest, error) {
	if patch.ControlMethods != nil {
		if err := validateControlMethods(*patch.ControlMethods); err != nil {
			return nil, err
		}
	}

	pest, err := s.findAuthored(ctx, agentID, pestID)
	if err != nil {
		return nil, err
	}

	prev := *pest
	var (
		updated       models.Pest
		newlyAffected []primitive.ObjectID
	)
	// The closure may run more than once; it reads prev and rebuilds updated each time.
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		updated = prev
		newlyAffected = nil
		if patch.AffectedCrops != nil {
			next := orEmpty(*patch.AffectedCrops)
			newlyAffected = difference(next, prev.AffectedCrops)

			if err := s.store.Crops.RemovePest(ctx, prev.AffectedCrops, prev.ID); err != nil {
				return fmt.Errorf("failed to unlink pest from crops: %w", err)
			}
			if err := s.store.Crops.AddPest(ctx, next, prev.ID); err != nil {
				return fmt.Errorf("failed to link pest to crops: %w", err)
			}
			updated.AffectedCrops = next
		}

		if patch.Name != nil {
			updated.Name = *patch.Name
		}
		if patch.ScientificName != nil {
			updated.ScientificName = *patch.ScientificName
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		if patch.Symptoms != nil {
			updated.Symptoms = orEmpty(*patch.Symptoms)
		}
		if patch.ControlMethods != nil {
			updated.ControlMethods = normalizeMethods(*patch.ControlMethods)
		}
		updated.UpdatedAt = s.now()

		if err := s.store.Pests.Update(ctx, &updated); err != nil {
			return storeErr(err, "Pest", "update pest")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pest = &updated
	s.alertOwners(ctx, pest, newlyAffected)
	return pest, nil
}

// ListAll returns every pest, newest first, with crops and author expanded.
func (s *PestService) ListAll(ctx context.Context) ([]models.PestListing, error) {
	pests, err := s.store.Pests.FindAll(ctx)
	if err != nil {
		return nil, storeErr(err, "Pest", "list pests")
	}

	var cropIDs, authorIDs []primitive.ObjectID
	for _, p := range pests {
		cropIDs = append(cropIDs, p.AffectedCrops...)
		authorIDs = append(authorIDs, p.AddedBy)
	}

	crops := make(map[primitive.ObjectID]models.Crop)
	if len(cropIDs) > 0 {
		found, err := s.store.Crops.FindByIDs(ctx, cropIDs)
		if err != nil {
			return nil, storeErr(err, "Crop", "load crops")
		}
		for _, c := range found {
			crops[c.ID] = c
		}
	}
	authors, err := usersByID(ctx, s.store.Users, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.PestListing, 0, len(pests))
	for _, p := range pests {
		refs := make([]models.CropRef, 0, len(p.AffectedCrops))
		for _, id := range p.AffectedCrops {
			if c, ok := crops[id]; ok {
				refs = append(refs, models.CropRef{ID: c.ID, Name: c.Name, FarmerID: c.FarmerID})
			}
		}
		out = append(out, models.PestListing{Pest: p, AffectedCrops: refs, AddedBy: authors[p.AddedBy].Ref()})
	}
	return out, nil
}

// Delete removes the pest from every crop that references it, then deletes it.
func (s *PestService) Delete(ctx context.Context, agentID, pestID primitive.ObjectID) error {
	if _, err := s.findAuthored(ctx, agentID, pestID); err != nil {
		return err
	}

	return s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Crops.RemovePestEverywhere(ctx, pestID); err != nil {
			return fmt.Errorf("failed to unlink pest from crops: %w", err)
		}
		if err := s.store.Pests.Delete(ctx, pestID); err != nil {
			return storeErr(err, "Pest", "delete pest")
		}
		return nil
	})
}

// findAuthored loads a pest and hides it from agents that did not add it.
func (s *PestService) findAuthored(ctx context.Context, agentID, pestID primitive.ObjectID) (*models.Pest, error) {
	pest, err := s.store.Pests.FindByID(ctx, pestID)
	if err != nil {
		return nil, storeErr(err, "Pest", "find pest")
	}
	if pest.AddedBy != agentID {
		return nil, apperror.NotFound("Pest")
	}
	return pest, nil
}

// alertOwners tells the owners of cropIDs that pest now affects their crops.
func (s *PestService) alertOwners(ctx context.Context, pest *models.Pest, cropIDs []primitive.ObjectID) {
	if len(cropIDs) == 0 {
		return
	}
	crops, err := s.store.Crops.FindByIDs(ctx, cropIDs)
	if err != nil {
		logger := log.WithComponent("pests")
		logger.Warn().Err(err).Str("pest_id", pest.ID.Hex()).Msg("could not load crops for pest alert")
		return
	}

	byOwner := make(map[primitive.ObjectID][]models.CropRef)
	for _, c := range crops {
		byOwner[c.FarmerID] = append(byOwner[c.FarmerID], models.CropRef{ID: c.ID, Name: c.Name, FarmerID: c.FarmerID})
	}
	for owner, affected := range byOwner {
		s.notifier.Notify(owner.Hex(), Notification{
			Type:    "pest.detected",
			Message: fmt.Sprintf("%s has been reported on %d of your crops", pest.Name, len(affected)),
			Data:    map[string]any{"pest": models.PestRef{ID: pest.ID, Name: pest.Name}, "crops": affected},
			SentAt:  s.now(),
		})
	}
}

// difference returns the ids in a that are not in b.
func difference(a, b []primitive.ObjectID) []primitive.ObjectID {
	inB := make(map[primitive.ObjectID]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []primitive.ObjectID
	for _, id := range a {
		if !inB[id] {
			out = append(out, id)
		}
	}
	return out
}
