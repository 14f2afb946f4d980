package cart

import (
	"context"

	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"go.uber.org/zap"
)

// ProductReader resolves the catalog entry for a product being added.
type ProductReader interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
}

// PurchaseChecker reports which products a user has already paid for.
type PurchaseChecker interface {
	PurchasedProductIDs(ctx context.Context, userID int) ([]int, error)
}

// Service orchestrates cart operations.
type Service struct {
	repo      Repository
	products  ProductReader
	purchases PurchaseChecker
	log       *zap.Logger
}

func NewService(repo Repository, products ProductReader, purchases PurchaseChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, products: products, purchases: purchases, log: log}
}

// GetCart returns the cart without products the user already owns. Such
// lines are also deleted so they do not come back on the next read.
func (s *Service) GetCart(ctx context.Context, userID int) ([]Line, error) {
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 || s.purchases == nil {
		return lines, nil
	}

	owned, err := s.purchased(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := make([]Line, 0, len(lines))
	var stale []int
	for _, l := range lines {
		if owned[l.ProductID] {
			stale = append(stale, l.ProductID)
			continue
		}
		kept = append(kept, l)
	}
	if len(stale) > 0 {
		if err := s.repo.RemoveMany(ctx, userID, stale); err != nil {
			s.log.Warn("failed to drop purchased cart lines", zap.Int("user_id", userID), zap.Ints("product_ids", stale), zap.Error(err))
		}
	}
	return kept, nil
}

// Add puts a product in the cart at its current price. Adding a product
// that is already there leaves the cart unchanged.
func (s *Service) Add(ctx context.Context, userID int, productID int) ([]Line, error) {
	if s.purchases != nil {
		owned, err := s.purchased(ctx, userID)
		if err != nil {
			return nil, err
		}
		if owned[productID] {
			return nil, ErrAlreadyPurchased
		}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if err == product.ErrNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	line := Line{
		ProductID:     p.ID,
		Title:         p.Title,
		UnitPrice:     p.Price,
		PreviousPrice: p.PreviousPrice,
		CategoryLabel: p.CategoryLabel,
		Size:          p.Size,
	}
	if err := s.repo.Add(ctx, userID, line); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID int, productID int) ([]Line, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// Clear empties a user's cart.
func (s *Service) Clear(ctx context.Context, userID int) error {
	return s.repo.Clear(ctx, userID)
}

func (s *Service) purchased(ctx context.Context, userID int) (map[int]bool, error) {
	ids, err := s.purchases.PurchasedProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}
