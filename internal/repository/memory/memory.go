// Package memory keeps every collection in process. It backs the test suites
// and `serve --memory`; data is lost on exit.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type db struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]models.User
	crops   map[primitive.ObjectID]models.Crop
	pests   map[primitive.ObjectID]models.Pest
	reports map[primitive.ObjectID]models.Report
}

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	d := &db{
		users:   make(map[primitive.ObjectID]models.User),
		crops:   make(map[primitive.ObjectID]models.Crop),
		pests:   make(map[primitive.ObjectID]models.Pest),
		reports: make(map[primitive.ObjectID]models.Report),
	}
	return &repository.Store{
		Users:   &userRepo{d},
		Crops:   &cropRepo{d},
		Pests:   &pestRepo{d},
		Reports: &reportRepo{d},
		Tx:      transactor{},
	}
}

type transactor struct{}

func (transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func between(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// newestFirst sorts by creation time descending, newest ObjectID first on ties.
func newestFirst[T any](items []T, created func(T) time.Time, id func(T) primitive.ObjectID) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]).Hex() > id(items[j]).Hex()
	})
}

// --- users ---

type userRepo struct{ d *db }

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateKey
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []models.User
	for id := range idSet(ids) {
		if u, ok := r.d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepo) FindByRole(_ context.Context, role string) ([]models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []models.User
	for _, u := range r.d.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *userRepo) CountCreatedBetween(_ context.Context, start, end time.Time) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var n int64
	for _, u := range r.d.users {
		if between(u.CreatedAt, start, end) {
			n++
		}
	}
	return n, nil
}

// --- crops ---

type cropRepo struct{ d *db }

func cloneCrop(c models.Crop) models.Crop {
	c.Pests = slices.Clone(c.Pests)
	if c.Pests == nil {
		c.Pests = []primitive.ObjectID{}
	}
	return c
}

func (r *cropRepo) Create(_ context.Context, c *models.Crop) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.d.crops[c.ID] = cloneCrop(*c)
	return nil
}

func (r *cropRepo) FindOwned(_ context.Context, id, farmerID primitive.ObjectID) (*models.Crop, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.crops[id]
	if !ok || c.FarmerID != farmerID {
		return nil, repository.ErrNotFound
	}
	c = cloneCrop(c)
	return &c, nil
}

func (r *cropRepo) filter(keep func(models.Crop) bool) []models.Crop {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []models.Crop
	for _, c := range r.d.crops {
		if keep(c) {
			out = append(out, cloneCrop(c))
		}
	}
	newestFirst(out, func(c models.Crop) time.Time { return c.CreatedAt }, func(c models.Crop) primitive.ObjectID { return c.ID })
	return out
}

func (r *cropRepo) FindByFarmer(_ context.Context, farmerID primitive.ObjectID) ([]models.Crop, error) {
	return r.filter(func(c models.Crop) bool { return c.FarmerID == farmerID }), nil
}

func (r *cropRepo) FindByFarmers(_ context.Context, farmerIDs []primitive.ObjectID) ([]models.Crop, error) {
	set := idSet(farmerIDs)
	return r.filter(func(c models.Crop) bool { return set[c.FarmerID] }), nil
}

func (r *cropRepo) FindAll(_ context.Context) ([]models.Crop, error) {
	return r.filter(func(models.Crop) bool { return true }), nil
}

func (r *cropRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Crop, error) {
	set := idSet(ids)
	return r.filter(func(c models.Crop) bool { return set[c.ID] }), nil
}

func (r *cropRepo) Update(_ context.Context, c *models.Crop) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stored, ok := r.d.crops[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = c.Name
	stored.PlantingDate = c.PlantingDate
	stored.Location = c.Location
	stored.Status = c.Status
	stored.UpdatedAt = c.UpdatedAt
	r.d.crops[c.ID] = stored
	return nil
}

func (r *cropRepo) DeleteOwned(_ context.Context, id, farmerID primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.crops[id]
	if !ok || c.FarmerID != farmerID {
		return repository.ErrNotFound
	}
	delete(r.d.crops, id)
	return nil
}

func (r *cropRepo) AddPest(_ context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id := range idSet(cropIDs) {
		c, ok := r.d.crops[id]
		if !ok || slices.Contains(c.Pests, pestID) {
			continue
		}
		c.Pests = append(slices.Clone(c.Pests), pestID)
		r.d.crops[id] = c
	}
	return nil
}

func (r *cropRepo) RemovePest(_ context.Context, cropIDs []primitive.ObjectID, pestID primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id := range idSet(cropIDs) {
		r.pull(id, pestID)
	}
	return nil
}

func (r *cropRepo) RemovePestEverywhere(_ context.Context, pestID primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id := range r.d.crops {
		r.pull(id, pestID)
	}
	return nil
}

// pull must be called with the write lock held.
func (r *cropRepo) pull(cropID, pestID primitive.ObjectID) {
	c, ok := r.d.crops[cropID]
	if !ok {
		return
	}
	c.Pests = slices.DeleteFunc(slices.Clone(c.Pests), func(id primitive.ObjectID) bool { return id == pestID })
	r.d.crops[cropID] = c
}

func (r *cropRepo) Count(_ context.Context) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return int64(len(r.d.crops)), nil
}

func (r *cropRepo) CountByFarmer(_ context.Context) (map[primitive.ObjectID]int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make(map[primitive.ObjectID]int64)
	for _, c := range r.d.crops {
		out[c.FarmerID]++
	}
	return out, nil
}

func (r *cropRepo) CountCreatedBetween(_ context.Context, start, end time.Time) (int64, error) {
	return int64(len(r.filter(func(c models.Crop) bool { return between(c.CreatedAt, start, end) }))), nil
}

func (r *cropRepo) DailyCreated(_ context.Context, start, end time.Time) (repository.DailyCounts, error) {
	out := repository.DailyCounts{}
	for _, c := range r.filter(func(c models.Crop) bool { return between(c.CreatedAt, start, end) }) {
		out[dayKey(c.CreatedAt)]++
	}
	return out, nil
}

// --- pests ---

type pestRepo struct{ d *db }

func clonePest(p models.Pest) models.Pest {
	p.Symptoms = slices.Clone(p.Symptoms)
	p.ControlMethods = slices.Clone(p.ControlMethods)
	for i := range p.ControlMethods {
		p.ControlMethods[i].Precautions = slices.Clone(p.ControlMethods[i].Precautions)
	}
	p.AffectedCrops = slices.Clone(p.AffectedCrops)
	if p.AffectedCrops == nil {
		p.AffectedCrops = []primitive.ObjectID{}
	}
	return p
}

func (r *pestRepo) Create(_ context.Context, p *models.Pest) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.d.pests[p.ID] = clonePest(*p)
	return nil
}

func (r *pestRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Pest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.pests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = clonePest(p)
	return &p, nil
}

func (r *pestRepo) filter(keep func(models.Pest) bool) []models.Pest {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []models.Pest
	for _, p := range r.d.pests {
		if keep(p) {
			out = append(out, clonePest(p))
		}
	}
	newestFirst(out, func(p models.Pest) time.Time { return p.CreatedAt }, func(p models.Pest) primitive.ObjectID { return p.ID })
	return out
}

func (r *pestRepo) FindAll(_ context.Context) ([]models.Pest, error) {
	return r.filter(func(models.Pest) bool { return true }), nil
}

func (r *pestRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Pest, error) {
	set := idSet(ids)
	return r.filter(func(p models.Pest) bool { return set[p.ID] }), nil
}

func (r *pestRepo) FindByAuthors(_ context.Context, authorIDs []primitive.ObjectID) ([]models.Pest, error) {
	set := idSet(authorIDs)
	return r.filter(func(p models.Pest) bool { return set[p.AddedBy] }), nil
}

func (r *pestRepo) Update(_ context.Context, p *models.Pest) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.pests[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.d.pests[p.ID] = clonePest(*p)
	return nil
}

func (r *pestRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.pests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.pests, id)
	return nil
}

func (r *pestRepo) Count(_ context.Context) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return int64(len(r.d.pests)), nil
}

func (r *pestRepo) CountByAuthor(_ context.Context) (map[primitive.ObjectID]int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make(map[primitive.ObjectID]int64)
	for _, p := range r.d.pests {
		out[p.AddedBy]++
	}
	return out, nil
}

func (r *pestRepo) CountCreatedBetween(_ context.Context, start, end time.Time) (int64, error) {
	return int64(len(r.filter(func(p models.Pest) bool { return between(p.CreatedAt, start, end) }))), nil
}

func (r *pestRepo) DailyCreated(_ context.Context, start, end time.Time) (repository.DailyCounts, error) {
	out := repository.DailyCounts{}
	for _, p := range r.filter(func(p models.Pest) bool { return between(p.CreatedAt, start, end) }) {
		out[dayKey(p.CreatedAt)]++
	}
	return out, nil
}

// --- reports ---

type reportRepo struct{ d *db }

func cloneReport(rep models.Report) models.Report {
	rep.Images = slices.Clone(rep.Images)
	if rep.Images == nil {
		rep.Images = []string{}
	}
	if rep.PestControlAction != nil {
		action := *rep.PestControlAction
		rep.PestControlAction = &action
	}
	return rep
}

func (r *reportRepo) Create(_ context.Context, rep *models.Report) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	r.d.reports[rep.ID] = cloneReport(*rep)
	return nil
}

func (r *reportRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	rep, ok := r.d.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rep = cloneReport(rep)
	return &rep, nil
}

func (r *reportRepo) filter(keep func(models.Report) bool) []models.Report {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []models.Report
	for _, rep := range r.d.reports {
		if keep(rep) {
			out = append(out, cloneReport(rep))
		}
	}
	newestFirst(out, func(rep models.Report) time.Time { return rep.CreatedAt }, func(rep models.Report) primitive.ObjectID { return rep.ID })
	return out
}

func (r *reportRepo) Find(_ context.Context, f repository.ReportFilter) ([]models.Report, error) {
	return r.filter(func(rep models.Report) bool {
		return f.FarmerID.IsZero() || rep.FarmerID == f.FarmerID
	}), nil
}

func (r *reportRepo) FindCreatedBetween(_ context.Context, start, end time.Time) ([]models.Report, error) {
	return r.filter(func(rep models.Report) bool { return between(rep.CreatedAt, start, end) }), nil
}

func (r *reportRepo) Update(_ context.Context, rep *models.Report) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	stored, ok := r.d.reports[rep.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = rep.Status
	stored.UpdatedAt = rep.UpdatedAt
	if rep.PestControlAction != nil {
		action := *rep.PestControlAction
		stored.PestControlAction = &action
	}
	r.d.reports[rep.ID] = stored
	return nil
}

func (r *reportRepo) AddImage(_ context.Context, id primitive.ObjectID, url string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	rep, ok := r.d.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	rep.Images = append(slices.Clone(rep.Images), url)
	r.d.reports[id] = rep
	return nil
}
