// Package checkout owns the per-user pricing context: which coupon is
// applied, what the cart costs, and the payment create/capture flow.
package checkout

import (
	"github.com/wichananm65/embroidery-shop-backend/internal/cart"
	"github.com/wichananm65/embroidery-shop-backend/internal/coupon"
	"github.com/wichananm65/embroidery-shop-backend/internal/pricing"
)

// Session holds at most one applied coupon for one user.
type Session struct {
	UserID  int            `json:"userId"`
	Applied *coupon.Coupon `json:"applied,omitempty"`
}

// Apply replaces any previously applied coupon.
func (s *Session) Apply(c coupon.Coupon) {
	s.Applied = &c
}

func (s *Session) Remove() {
	s.Applied = nil
}

func (s Session) Totals(lines []cart.Line) pricing.Result {
	return pricing.ComputeTotals(lines, s.Applied)
}
