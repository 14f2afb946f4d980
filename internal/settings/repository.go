package settings

import (
	"context"
	"sync"
	"time"
)

type Repository interface {
	Get(ctx context.Context) (PdfSettings, error)
	Update(ctx context.Context, s PdfSettings) (PdfSettings, error)
}

type InMemoryRepository struct {
	mu       sync.RWMutex
	settings PdfSettings
}

func NewInMemoryRepository(seed PdfSettings) *InMemoryRepository {
	return &InMemoryRepository{settings: seed}
}

func (r *InMemoryRepository) Get(_ context.Context) (PdfSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}

func (r *InMemoryRepository) Update(_ context.Context, s PdfSettings) (PdfSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	r.settings = s
	return s, nil
}
