package favorite

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrAlreadyFavorite = errors.New("product already in favorites")
	ErrNotFavorite     = errors.New("product not in favorites")
)

// Repository stores each user's favorite product ids in insertion order.
type Repository interface {
	Add(ctx context.Context, userID, productID int) error
	Remove(ctx context.Context, userID, productID int) error
	ProductIDs(ctx context.Context, userID int) ([]int, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[int][]int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[int][]int)}
}

func (r *InMemoryRepository) Add(_ context.Context, userID, productID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pid := range r.items[userID] {
		if pid == productID {
			return ErrAlreadyFavorite
		}
	}
	r.items[userID] = append(r.items[userID], productID)
	return nil
}

func (r *InMemoryRepository) Remove(_ context.Context, userID, productID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	favs := r.items[userID]
	for i, pid := range favs {
		if pid == productID {
			r.items[userID] = append(favs[:i:i], favs[i+1:]...)
			return nil
		}
	}
	return ErrNotFavorite
}

func (r *InMemoryRepository) ProductIDs(_ context.Context, userID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]int, len(r.items[userID]))
	copy(res, r.items[userID])
	return res, nil
}
