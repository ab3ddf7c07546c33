package database

import (
	"context"
	"time"

	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReportRepository struct {
	coll *mongo.Collection
}

func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) error {
	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	if rep.Images == nil {
		rep.Images = []string{}
	}
	_, err := r.coll.InsertOne(ctx, rep)
	return translate(err)
}

func (r *ReportRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var rep models.Report
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r *ReportRepository) Find(ctx context.Context, f repository.ReportFilter) ([]models.Report, error) {
	filter := bson.M{}
	if !f.FarmerID.IsZero() {
		filter["farmerId"] = f.FarmerID
	}
	return findAll[models.Report](ctx, r.coll, filter, newestFirst)
}

func (r *ReportRepository) FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Report, error) {
	return findAll[models.Report](ctx, r.coll, createdBetween(start, end))
}

func (r *ReportRepository) Update(ctx context.Context, rep *models.Report) error {
	set := bson.M{
		"status":    rep.Status,
		"updatedAt": rep.UpdatedAt,
	}
	if rep.PestControlAction != nil {
		set["pestControlAction"] = rep.PestControlAction
	}
	// images is owned by AddImage.
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": rep.ID}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) AddImage(ctx context.Context, id primitive.ObjectID, url string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
