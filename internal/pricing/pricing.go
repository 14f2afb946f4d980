// Package pricing computes checkout totals from cart lines and the applied
// coupon. Everything here is pure: no I/O, no mutation of the inputs.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/embroidery-shop-backend/internal/cart"
	"github.com/wichananm65/embroidery-shop-backend/internal/coupon"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Result holds full-precision totals. LineDiscounts is index-aligned with the
// lines passed to ComputeTotals.
type Result struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	LineDiscounts []decimal.Decimal
}

// Display is the rounded view shown to buyers and sent to the payment provider.
type Display struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func (r Result) Display() Display {
	return Display{
		Subtotal: r.Subtotal.StringFixed(2),
		Discount: r.Discount.StringFixed(2),
		Total:    r.Total.StringFixed(2),
	}
}

// ComputeTotals prices the cart. A nil coupon means no discount.
//
// Welcome coupons discount the whole cart. Bulk coupons discount only the
// MaxItems cheapest lines, ties keeping cart order. Admin coupons behave like
// bulk coupons when MaxItems is set and like welcome coupons otherwise.
func ComputeTotals(lines []cart.Line, applied *coupon.Coupon) Result {
	prices := make([]decimal.Decimal, len(lines))
	subtotal := zero
	for i, l := range lines {
		p := l.UnitPrice
		if p.IsNegative() {
			p = zero
		}
		prices[i] = p
		subtotal = subtotal.Add(p)
	}

	res := Result{
		Subtotal:      subtotal,
		Discount:      zero,
		Total:         subtotal,
		LineDiscounts: make([]decimal.Decimal, len(lines)),
	}
	for i := range res.LineDiscounts {
		res.LineDiscounts[i] = zero
	}
	if applied == nil || len(lines) == 0 {
		return res
	}

	rate := clampPercent(applied.DiscountPercent).Div(hundred)
	var selected []int
	switch applied.Kind {
	case coupon.KindWelcomePercent:
		selected = allIndexes(len(prices))
	case coupon.KindBulkPercentCapped:
		selected = cheapest(prices, applied.MaxItems)
	case coupon.KindAdminManual:
		if applied.MaxItems > 0 {
			selected = cheapest(prices, applied.MaxItems)
		} else {
			selected = allIndexes(len(prices))
		}
	}

	discount := zero
	for _, idx := range selected {
		d := prices[idx].Mul(rate)
		res.LineDiscounts[idx] = d
		discount = discount.Add(d)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	res.Discount = discount
	res.Total = subtotal.Sub(discount)
	if res.Total.IsNegative() {
		res.Total = zero
	}
	return res
}

// cheapest returns the indexes of the k lowest prices, ties broken by
// original position.
func cheapest(prices []decimal.Decimal, k int) []int {
	if k <= 0 {
		return nil
	}
	idx := allIndexes(len(prices))
	sort.SliceStable(idx, func(a, b int) bool {
		return prices[idx[a]].LessThan(prices[idx[b]])
	})
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
