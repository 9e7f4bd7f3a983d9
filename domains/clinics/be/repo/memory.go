package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/optoplus-health/optoplus/domains/clinics/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests
// and early development.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]service.Clinic
	byKey  map[string]int64
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		byID:   make(map[int64]service.Clinic),
		byKey:  make(map[string]int64),
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, c service.Clinic) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[c.DBName]; exists {
		return 0, service.ErrDuplicateName
	}

	c.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	r.byID[c.ID] = c
	r.byKey[c.DBName] = c.ID
	return c.ID, nil
}

func (r *MemoryRepository) FindByKey(ctx context.Context, dbName string) (service.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[dbName]
	if !ok {
		return service.Clinic{}, service.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (service.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return service.Clinic{}, service.ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) List(ctx context.Context, active *bool) ([]service.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Clinic, 0, len(r.byID))
	for _, c := range r.byID {
		if active != nil && c.Active != *active {
			continue
		}
		items = append(items, c)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id int64, active bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	r.byID[id] = c
	return true, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id int64, input service.UpdateInput) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return false, nil
	}

	if input.Name != nil {
		c.Name = *input.Name
	}
	if input.Address != nil {
		c.Address = input.Address
	}
	if input.Phone != nil {
		c.Phone = input.Phone
	}
	if input.ManagerName != nil {
		c.ManagerName = input.ManagerName
	}
	if input.EstablishmentYear != nil {
		c.EstablishmentYear = input.EstablishmentYear
	}
	if input.LogoURL != nil {
		c.LogoURL = input.LogoURL
	}
	if input.ManagerID != nil {
		c.ManagerID = input.ManagerID
	}

	c.UpdatedAt = time.Now().UTC()
	r.byID[id] = c
	return true, nil
}
