package favorite

import (
	"context"

	"github.com/wichananm65/embroidery-shop-backend/internal/product"
)

// ProductLister resolves favorite ids to catalog entries.
type ProductLister interface {
	GetByIDs(ctx context.Context, ids []int) ([]product.Product, error)
}

type Service struct {
	repo     Repository
	products ProductLister
}

func NewService(repo Repository, products ProductLister) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) AddFavorite(ctx context.Context, userID int, productID int) ([]int, error) {
	if productID <= 0 {
		return nil, ErrProductNotFound
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.ProductIDs(ctx, userID)
}

func (s *Service) RemoveFavorite(ctx context.Context, userID int, productID int) ([]int, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.ProductIDs(ctx, userID)
}

// GetFavorites returns the favorite products in the order they were added.
// Products removed from the catalog are skipped.
func (s *Service) GetFavorites(ctx context.Context, userID int) ([]product.Product, error) {
	ids, err := s.repo.ProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []product.Product{}, nil
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i] = product.PublicView(products[i])
	}
	return products, nil
}
