package cart

import "github.com/shopspring/decimal"

// Line is one product in a buyer's cart. Designs are digital, so a product
// appears at most once and there is no quantity. UnitPrice is locked when
// the product is added.
type Line struct {
	ProductID     int              `json:"productId"`
	Title         string           `json:"title"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	PreviousPrice *decimal.Decimal `json:"previousPrice,omitempty"`
	CategoryLabel string           `json:"categoryLabel,omitempty"`
	Size          string           `json:"size,omitempty"`
	AddedAt       string           `json:"addedAt,omitempty"`
}

// ProductIDs lists the products in cart order.
func ProductIDs(lines []Line) []int {
	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}
