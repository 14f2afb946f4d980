package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotInCart        = errors.New("product is not in the cart")
	ErrAlreadyPurchased = errors.New("product already purchased")
	ErrProductNotFound  = errors.New("product not found")
)

// Repository stores cart lines per user in insertion order.
type Repository interface {
	List(ctx context.Context, userID int) ([]Line, error)
	// Add is a no-op when the product is already in the cart.
	Add(ctx context.Context, userID int, line Line) error
	Remove(ctx context.Context, userID int, productID int) error
	RemoveMany(ctx context.Context, userID int, productIDs []int) error
	Clear(ctx context.Context, userID int) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	lines map[int][]Line
}

func NewInMemoryRepository(seed map[int][]Line) *InMemoryRepository {
	r := &InMemoryRepository{lines: make(map[int][]Line, len(seed))}
	for uid, ls := range seed {
		cp := make([]Line, len(ls))
		copy(cp, ls)
		r.lines[uid] = cp
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context, userID int) ([]Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Line, len(r.lines[userID]))
	copy(out, r.lines[userID])
	return out, nil
}

func (r *InMemoryRepository) Add(_ context.Context, userID int, line Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines[userID] {
		if l.ProductID == line.ProductID {
			return nil
		}
	}
	if line.AddedAt == "" {
		line.AddedAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.lines[userID] = append(r.lines[userID], line)
	return nil
}

func (r *InMemoryRepository) Remove(_ context.Context, userID int, productID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls := r.lines[userID]
	for i := range ls {
		if ls[i].ProductID == productID {
			r.lines[userID] = append(ls[:i:i], ls[i+1:]...)
			return nil
		}
	}
	return ErrNotInCart
}

func (r *InMemoryRepository) RemoveMany(_ context.Context, userID int, productIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[int]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := make([]Line, 0, len(r.lines[userID]))
	for _, l := range r.lines[userID] {
		if !drop[l.ProductID] {
			kept = append(kept, l)
		}
	}
	r.lines[userID] = kept
	return nil
}

// Clear empties a user's cart.
func (r *InMemoryRepository) Clear(_ context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, userID)
	return nil
}
