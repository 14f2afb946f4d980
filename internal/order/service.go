package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"go.uber.org/zap"
)

var ErrEmptyOrder = errors.New("order has no lines")

// ProductLister resolves purchased product ids to catalog entries.
type ProductLister interface {
	GetByIDs(ctx context.Context, ids []int) ([]product.Product, error)
}

// Draft carries the priced checkout a pending order is created from.
type Draft struct {
	UserID     int
	Lines      []Line
	CouponID   *int
	CouponCode string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	Currency   string
}

// Service provides business logic for orders.
type Service struct {
	repo     Repository
	products ProductLister
	log      *zap.Logger
}

func NewService(r Repository, products ProductLister, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: r, products: products, log: log}
}

// CreatePending stores a new pending order under a fresh reference.
func (s *Service) CreatePending(ctx context.Context, d Draft) (Order, error) {
	if d.UserID <= 0 {
		return Order{}, errors.New("invalid user")
	}
	if len(d.Lines) == 0 {
		return Order{}, ErrEmptyOrder
	}
	o := Order{
		Ref:        uuid.NewString(),
		UserID:     d.UserID,
		Lines:      d.Lines,
		CouponID:   d.CouponID,
		CouponCode: d.CouponCode,
		Subtotal:   d.Subtotal,
		Discount:   d.Discount,
		Total:      d.Total,
		Currency:   d.Currency,
		Status:     StatusPending,
	}
	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	s.log.Info("order created", zap.String("ref", created.Ref), zap.Int("user_id", d.UserID), zap.String("total", created.Total.StringFixed(2)))
	return created, nil
}

func (s *Service) AttachExternalRef(ctx context.Context, ref, externalRef string) error {
	return s.repo.SetExternalRef(ctx, ref, externalRef)
}

func (s *Service) GetByRef(ctx context.Context, ref string) (Order, error) {
	return s.repo.GetByRef(ctx, ref)
}

func (s *Service) MarkPaid(ctx context.Context, ref, providerPaymentID string) (Order, error) {
	o, err := s.repo.MarkPaid(ctx, ref, providerPaymentID)
	if err != nil {
		return o, err
	}
	s.log.Info("order paid", zap.String("ref", ref), zap.String("payment_id", providerPaymentID))
	return o, nil
}

func (s *Service) MarkFailed(ctx context.Context, ref string) error {
	if err := s.repo.MarkFailed(ctx, ref); err != nil {
		return err
	}
	s.log.Info("order failed", zap.String("ref", ref))
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) PurchasedProductIDs(ctx context.Context, userID int) ([]int, error) {
	return s.repo.PurchasedProductIDs(ctx, userID)
}

// HasPurchased reports whether the user has a paid order containing the product.
func (s *Service) HasPurchased(ctx context.Context, userID, productID int) (bool, error) {
	ids, err := s.repo.PurchasedProductIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

// MyDesigns lists the catalog entries the user has paid for.
func (s *Service) MyDesigns(ctx context.Context, userID int) ([]product.Product, error) {
	ids, err := s.repo.PurchasedProductIDs(ctx, userID)
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
