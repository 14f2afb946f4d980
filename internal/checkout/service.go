package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/embroidery-shop-backend/internal/cart"
	"github.com/wichananm65/embroidery-shop-backend/internal/coupon"
	"github.com/wichananm65/embroidery-shop-backend/internal/events"
	"github.com/wichananm65/embroidery-shop-backend/internal/order"
	"github.com/wichananm65/embroidery-shop-backend/internal/payment"
	"github.com/wichananm65/embroidery-shop-backend/internal/pricing"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrCouponNotFound = errors.New("coupon not found")
	ErrRefMismatch    = errors.New("payment reference does not match order")
	ErrOrderClosed    = errors.New("order is no longer payable")
	ErrAlreadyOwned   = errors.New("order contains a design that was already purchased")
)

type CartService interface {
	GetCart(ctx context.Context, userID int) ([]cart.Line, error)
	Clear(ctx context.Context, userID int) error
}

type CouponService interface {
	Validate(ctx context.Context, userID int, code string) (coupon.Coupon, error)
	MarkUsed(ctx context.Context, couponID int) error
	Release(ctx context.Context, couponID int) error
}

type OrderService interface {
	CreatePending(ctx context.Context, d order.Draft) (order.Order, error)
	AttachExternalRef(ctx context.Context, ref, externalRef string) error
	GetByRef(ctx context.Context, ref string) (order.Order, error)
	MarkPaid(ctx context.Context, ref, providerPaymentID string) (order.Order, error)
	MarkFailed(ctx context.Context, ref string) error
	PurchasedProductIDs(ctx context.Context, userID int) ([]int, error)
}

type QuoteLine struct {
	cart.Line
	Discount string `json:"discount"`
}

// Quote is the priced checkout view.
type Quote struct {
	Lines  []QuoteLine     `json:"lines"`
	Coupon *coupon.Coupon  `json:"coupon,omitempty"`
	Totals pricing.Display `json:"totals"`
}

type PaymentOrder struct {
	ExternalRef string `json:"externalOrderRef"`
	InternalRef string `json:"internalOrderRef"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type CaptureResult struct {
	Status            string `json:"status"`
	OrderRef          string `json:"orderRef"`
	ProviderPaymentID string `json:"providerPaymentId,omitempty"`
}

type Service struct {
	carts    CartService
	coupons  CouponService
	orders   OrderService
	gateway  payment.Gateway
	sessions SessionStore
	events   events.Publisher
	currency string
	log      *zap.Logger
}

func NewService(carts CartService, coupons CouponService, orders OrderService, gateway payment.Gateway,
	sessions SessionStore, publisher events.Publisher, currency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		gateway:  gateway,
		sessions: sessions,
		events:   publisher,
		currency: currency,
		log:      log,
	}
}

// Quote prices the current cart with the session's coupon, if any. An
// applied coupon stays applied even when the cart is empty.
func (s *Service) Quote(ctx context.Context, userID int) (Quote, error) {
	lines, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	return buildQuote(lines, sess), nil
}

// ApplyCoupon validates the code against the server before it replaces the
// session's coupon. A rejected code leaves the session unchanged.
func (s *Service) ApplyCoupon(ctx context.Context, userID int, code string) (Quote, error) {
	c, err := s.coupons.Validate(ctx, userID, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return Quote{}, ErrCouponNotFound
		}
		return Quote{}, err
	}
	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	sess.Apply(c)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Quote{}, err
	}
	return s.Quote(ctx, userID)
}

func (s *Service) RemoveCoupon(ctx context.Context, userID int) (Quote, error) {
	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	sess.Remove()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Quote{}, err
	}
	return s.Quote(ctx, userID)
}

// CreatePaymentOrder freezes the priced cart into a pending order and opens
// a matching order with the payment provider.
func (s *Service) CreatePaymentOrder(ctx context.Context, userID int) (PaymentOrder, error) {
	lines, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return PaymentOrder{}, err
	}
	if len(lines) == 0 {
		return PaymentOrder{}, ErrEmptyCart
	}
	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return PaymentOrder{}, err
	}

	var applied *coupon.Coupon
	if sess.Applied != nil {
		c, err := s.coupons.Validate(ctx, userID, sess.Applied.Code)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				return PaymentOrder{}, ErrCouponNotFound
			}
			return PaymentOrder{}, err
		}
		applied = &c
	}

	res := pricing.ComputeTotals(lines, applied)
	draft := order.Draft{
		UserID:   userID,
		Lines:    make([]order.Line, len(lines)),
		Subtotal: res.Subtotal,
		Discount: res.Discount,
		Total:    res.Total,
		Currency: s.currency,
	}
	for i, l := range lines {
		draft.Lines[i] = order.Line{ProductID: l.ProductID, Title: l.Title, UnitPrice: l.UnitPrice, Discount: res.LineDiscounts[i]}
	}
	if applied != nil {
		id := applied.ID
		draft.CouponID = &id
		draft.CouponCode = applied.Code
	}

	o, err := s.orders.CreatePending(ctx, draft)
	if err != nil {
		return PaymentOrder{}, err
	}
	po, err := s.gateway.CreateOrder(ctx, res.Total.Round(2), s.currency, o.Ref)
	if err != nil {
		s.closeOrder(ctx, o.Ref)
		return PaymentOrder{}, err
	}
	if err := s.orders.AttachExternalRef(ctx, o.Ref, po.ExternalRef); err != nil {
		return PaymentOrder{}, fmt.Errorf("attach external ref: %w", err)
	}
	return PaymentOrder{
		ExternalRef: po.ExternalRef,
		InternalRef: o.Ref,
		Amount:      po.Amount.StringFixed(2),
		Currency:    po.Currency,
	}, nil
}

// CapturePaymentOrder collects the funds. The coupon is redeemed before the
// provider is asked, so a coupon can pay for one order only. On success the
// order is paid and the cart and session are cleared. On a provider failure
// the order is closed and the coupon handed back; cart and session stay as
// they were so the buyer can retry.
func (s *Service) CapturePaymentOrder(ctx context.Context, userID int, internalRef, externalRef string) (CaptureResult, error) {
	o, err := s.orders.GetByRef(ctx, internalRef)
	if err != nil {
		return CaptureResult{}, err
	}
	if o.UserID != userID {
		return CaptureResult{}, order.ErrNotFound
	}
	if o.ExternalRef == "" || o.ExternalRef != externalRef {
		return CaptureResult{}, ErrRefMismatch
	}
	switch o.Status {
	case order.StatusPaid:
		return CaptureResult{Status: "success", OrderRef: o.Ref, ProviderPaymentID: o.ProviderPaymentID}, nil
	case order.StatusFailed:
		return CaptureResult{}, ErrOrderClosed
	}

	owned, err := s.orders.PurchasedProductIDs(ctx, userID)
	if err != nil {
		return CaptureResult{}, err
	}
	if containsAny(o.ProductIDs(), owned) {
		s.closeOrder(ctx, o.Ref)
		return CaptureResult{}, ErrAlreadyOwned
	}
	if o.CouponID != nil {
		if err := s.coupons.MarkUsed(ctx, *o.CouponID); err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				s.closeOrder(ctx, o.Ref)
				return CaptureResult{}, ErrCouponNotFound
			}
			return CaptureResult{}, err
		}
	}

	captured, err := s.gateway.CaptureOrder(ctx, externalRef)
	if err != nil {
		if o.CouponID != nil {
			if rerr := s.coupons.Release(ctx, *o.CouponID); rerr != nil {
				s.log.Error("failed to release coupon", zap.Int("coupon_id", *o.CouponID), zap.String("ref", o.Ref), zap.Error(rerr))
			}
		}
		var pe *payment.ProviderError
		if errors.As(err, &pe) {
			s.closeOrder(ctx, o.Ref)
			s.log.Info("payment capture declined", zap.String("ref", o.Ref), zap.String("code", pe.Code))
		}
		return CaptureResult{}, err
	}

	paid, err := s.orders.MarkPaid(ctx, o.Ref, captured.PaymentID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("mark order paid: %w", err)
	}
	s.settle(ctx, userID, paid)
	return CaptureResult{Status: "success", OrderRef: paid.Ref, ProviderPaymentID: paid.ProviderPaymentID}, nil
}

func (s *Service) closeOrder(ctx context.Context, ref string) {
	if err := s.orders.MarkFailed(ctx, ref); err != nil {
		s.log.Warn("failed to close order", zap.String("ref", ref), zap.Error(err))
	}
}

// settle runs the post-capture side effects. The money has moved, so
// failures here are logged rather than returned.
func (s *Service) settle(ctx context.Context, userID int, o order.Order) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.log.Warn("failed to clear cart", zap.Int("user_id", userID), zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Warn("failed to clear checkout session", zap.Int("user_id", userID), zap.Error(err))
	}
	if s.events != nil {
		if err := s.events.PublishOrderPaid(ctx, events.NewOrderPaid(o.Ref, userID, o.ProductIDs())); err != nil {
			s.log.Error("failed to publish order paid", zap.String("ref", o.Ref), zap.Error(err))
		}
	}
}

func containsAny(ids, set []int) bool {
	for _, id := range ids {
		for _, other := range set {
			if id == other {
				return true
			}
		}
	}
	return false
}

func buildQuote(lines []cart.Line, sess Session) Quote {
	res := sess.Totals(lines)
	q := Quote{
		Lines:  make([]QuoteLine, len(lines)),
		Coupon: sess.Applied,
		Totals: res.Display(),
	}
	for i, l := range lines {
		q.Lines[i] = QuoteLine{Line: l, Discount: res.LineDiscounts[i].StringFixed(2)}
	}
	return q
}
