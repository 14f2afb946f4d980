package product

import (
	"context"

	"github.com/wichananm65/embroidery-shop-backend/internal/document"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, categoryID int) ([]Product, error) {
	return s.repo.List(ctx, categoryID)
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	return s.repo.GetByIDs(ctx, ids)
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id int, p Product) (Product, error) {
	return s.repo.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SetBundlePath(ctx context.Context, id int, path string) error {
	return s.repo.SetBundlePath(ctx, id, path)
}

// ClearBundlePaths sends every download back to on-demand builds until the
// worker stores fresh bundles.
func (s *Service) ClearBundlePaths(ctx context.Context) error {
	return s.repo.ClearBundlePaths(ctx)
}

// DocumentData returns the render snapshot and the precomputed bundle
// location, if one has been recorded.
func (s *Service) DocumentData(ctx context.Context, id int) (document.ProductDocument, *string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return document.ProductDocument{}, nil, err
	}
	return p.Document(), p.BundlePath, nil
}
