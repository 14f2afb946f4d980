package product

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Repository interface {
	List(ctx context.Context, categoryID int) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	GetByIDs(ctx context.Context, ids []int) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int, p Product) (Product, error)
	Delete(ctx context.Context, id int) error
	SetBundlePath(ctx context.Context, id int, path string) error
	// ClearBundlePaths forgets every precomputed bundle.
	ClearBundlePaths(ctx context.Context) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int
	// CategoryNames resolves CategoryLabel the way the SQL join does.
	CategoryNames map[int]string
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make([]Product, 0, len(seed)),
		nextID:  1,
	}

	maxID := 0
	for _, p := range seed {
		r.storage = append(r.storage, p)
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) label(p Product) Product {
	if p.CategoryID != nil {
		if name, ok := r.CategoryNames[*p.CategoryID]; ok {
			p.CategoryLabel = name
		}
	}
	return p
}

// List returns every product, or only those in categoryID when it is > 0.
func (r *InMemoryRepository) List(_ context.Context, categoryID int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.storage))
	for _, p := range r.storage {
		if categoryID > 0 && (p.CategoryID == nil || *p.CategoryID != categoryID) {
			continue
		}
		out = append(out, r.label(p))
	}
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return r.label(p), nil
		}
	}
	return Product{}, ErrNotFound
}

// GetByIDs keeps the order of ids and silently drops unknown ones.
func (r *InMemoryRepository) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	r.storage = append(r.storage, p)
	return r.label(p), nil
}

// Update replaces the product but keeps its recorded bundle.
func (r *InMemoryRepository) Update(_ context.Context, id int, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			p.ID = id
			p.BundlePath = nil
			p.CreatedAt = r.storage[i].CreatedAt
			r.storage[i] = p
			return r.label(p), nil
		}
	}
	return Product{}, ErrNotFound
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

// SetBundlePath records a precomputed bundle; an empty path clears it.
func (r *InMemoryRepository) SetBundlePath(_ context.Context, id int, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			if path == "" {
				r.storage[i].BundlePath = nil
			} else {
				p := path
				r.storage[i].BundlePath = &p
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) ClearBundlePaths(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		r.storage[i].BundlePath = nil
	}
	return nil
}
