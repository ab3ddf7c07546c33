// Package repository declares the persistence operations the domain services
// depend on. internal/database implements them on MongoDB and
// internal/repository/memory implements them in process.
package repository

import (
	"context"
	"errors"
	"time"

	"pest-tracker-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a single-document lookup matches nothing.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
)

// DailyCounts maps a YYYY-MM-DD (UTC) key to the number of documents created that day.
type DailyCounts map[string]int64

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByRole(ctx context.Context, role string) ([]models.User, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
}

type CropRepository interface {
	Create(ctx context.Context, c *models.Crop) error
	// FindOwned returns ErrNotFound when the crop is missing or owned by someone else.
	FindOwned(ctx context.Context, id, farmerID primitive.ObjectID) (*models.Crop, error)
	FindByFarmer(ctx context.Context, farmerID primitive.ObjectID) ([]models.Crop, error)
	FindByFarmers(ctx context.Context, farmerIDs []primitive.ObjectID) ([]models.Crop, error)
	FindAll(ctx context.Context) ([]models.Crop, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Crop, error)
	// Update writes name, plantingDate, location, status and updatedAt only.
	Update(ctx context.Context, c *models.Crop) error
	// DeleteOwned returns ErrNotFound when nothing owned by farmerID was deleted.
	DeleteOwned(ctx context.Context, id, farmerID primitive.ObjectID) error
	// AddPest adds pestID to the pests set of every crop in cropIDs.
	AddPest(ctx context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error
	// RemovePest pulls pestID from the pests of every crop in cropIDs.
	RemovePest(ctx context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error
	// RemovePestEverywhere pulls pestID from every crop that references it.
	RemovePestEverywhere(ctx context.Context, pestID primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	// CountByFarmer groups crops by owner.
	CountByFarmer(ctx context.Context) (map[primitive.ObjectID]int64, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
	DailyCreated(ctx context.Context, start, end time.Time) (DailyCounts, error)
}

type PestRepository interface {
	Create(ctx context.Context, p *models.Pest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pest, error)
	FindAll(ctx context.Context) ([]models.Pest, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Pest, error)
	FindByAuthors(ctx context.Context, authorIDs []primitive.ObjectID) ([]models.Pest, error)
	Update(ctx context.Context, p *models.Pest) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	// CountByAuthor groups pests by the agent that added them.
	CountByAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
	DailyCreated(ctx context.Context, start, end time.Time) (DailyCounts, error)
}

// ReportFilter narrows report listings. A zero FarmerID matches every farmer.
type ReportFilter struct {
	FarmerID primitive.ObjectID
}

type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	Find(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	FindCreatedBetween(ctx context.Context, start, end time.Time) ([]models.Report, error)
	// Update writes status and updatedAt, plus pestControlAction when set.
	// Images are left untouched.
	Update(ctx context.Context, r *models.Report) error
	AddImage(ctx context.Context, id primitive.ObjectID, url string) error
}

// Transactor runs fn as one unit where the backing store supports it.
// Implementations without transactions simply call fn.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository behind one handle.
type Store struct {
	Users   UserRepository
	Crops   CropRepository
	Pests   PestRepository
	Reports ReportRepository
	Tx      Transactor
}
