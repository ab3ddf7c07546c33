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

type CropRepository struct {
	coll *mongo.Collection
}

func (r *CropRepository) Create(ctx context.Context, c *models.Crop) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Pests == nil {
		c.Pests = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, c)
	return translate(err)
}

func (r *CropRepository) FindOwned(ctx context.Context, id, farmerID primitive.ObjectID) (*models.Crop, error) {
	var c models.Crop
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "farmerId": farmerID}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CropRepository) FindByFarmer(ctx context.Context, farmerID primitive.ObjectID) ([]models.Crop, error) {
	return findAll[models.Crop](ctx, r.coll, bson.M{"farmerId": farmerID}, newestFirst)
}

func (r *CropRepository) FindByFarmers(ctx context.Context, farmerIDs []primitive.ObjectID) ([]models.Crop, error) {
	if len(farmerIDs) == 0 {
		return nil, nil
	}
	return findAll[models.Crop](ctx, r.coll, bson.M{"farmerId": bson.M{"$in": farmerIDs}}, newestFirst)
}

func (r *CropRepository) FindAll(ctx context.Context) ([]models.Crop, error) {
	return findAll[models.Crop](ctx, r.coll, bson.M{}, newestFirst)
}

func (r *CropRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Crop, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findAll[models.Crop](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *CropRepository) Update(ctx context.Context, c *models.Crop) error {
	// pests is owned by AddPest/RemovePest and is never written here.
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{
		"$set": bson.M{
			"name":         c.Name,
			"plantingDate": c.PlantingDate,
			"location":     c.Location,
			"status":       c.Status,
			"updatedAt":    c.UpdatedAt,
		},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CropRepository) DeleteOwned(ctx context.Context, id, farmerID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "farmerId": farmerID})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CropRepository) AddPest(ctx context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error {
	if len(cropIDs) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": cropIDs}},
		bson.M{"$addToSet": bson.M{"pests": pestID}},
	)
	return translate(err)
}

func (r *CropRepository) RemovePest(ctx context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error {
	if len(cropIDs) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": cropIDs}},
		bson.M{"$pull": bson.M{"pests": pestID}},
	)
	return translate(err)
}

func (r *CropRepository) RemovePestEverywhere(ctx context.Context, pestID primitive.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"pests": pestID},
		bson.M{"$pull": bson.M{"pests": pestID}},
	)
	return translate(err)
}

func (r *CropRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *CropRepository) CountByFarmer(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	return countBy(ctx, r.coll, "$farmerId")
}

func (r *CropRepository) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return r.coll.CountDocuments(ctx, createdBetween(start, end))
}

func (r *CropRepository) DailyCreated(ctx context.Context, start, end time.Time) (repository.DailyCounts, error) {
	return dailyCreated(ctx, r.coll, start, end)
}

// countBy groups the collection by an ObjectID field and counts each group.
func countBy(ctx context.Context, coll *mongo.Collection, field string) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}
