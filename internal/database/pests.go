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

type PestRepository struct {
	coll *mongo.Collection
}

func (r *PestRepository) Create(ctx context.Context, p *models.Pest) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.AffectedCrops == nil {
		p.AffectedCrops = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, p)
	return translate(err)
}

func (r *PestRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pest, error) {
	var p models.Pest
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PestRepository) FindAll(ctx context.Context) ([]models.Pest, error) {
	return findAll[models.Pest](ctx, r.coll, bson.M{}, newestFirst)
}

func (r *PestRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Pest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findAll[models.Pest](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *PestRepository) FindByAuthors(ctx context.Context, authorIDs []primitive.ObjectID) ([]models.Pest, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	return findAll[models.Pest](ctx, r.coll, bson.M{"addedBy": bson.M{"$in": authorIDs}}, newestFirst)
}

func (r *PestRepository) Update(ctx context.Context, p *models.Pest) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PestRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PestRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *PestRepository) CountByAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	return countBy(ctx, r.coll, "$addedBy")
}

func (r *PestRepository) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return r.coll.CountDocuments(ctx, createdBetween(start, end))
}

func (r *PestRepository) DailyCreated(ctx context.Context, start, end time.Time) (repository.DailyCounts, error) {
	return dailyCreated(ctx, r.coll, start, end)
}
