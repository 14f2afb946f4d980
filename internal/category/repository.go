package category

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound   = errors.New("category not found")
	ErrSlugExists = errors.New("category slug already exists")
)

// Repository provides access to category rows.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Delete(ctx context.Context, id int) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Category
	nextID  int
}

func NewInMemoryRepository(seed []Category) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Category, 0, len(seed)), nextID: 1}
	for _, c := range seed {
		r.storage = append(r.storage, c)
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, len(r.storage))
	copy(out, r.storage)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.storage {
		if c.ID == id {
			return c, nil
		}
	}
	return Category{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.storage {
		if existing.Slug == c.Slug {
			return Category{}, ErrSlugExists
		}
	}
	c.ID = r.nextID
	r.nextID++
	r.storage = append(r.storage, c)
	return c, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
