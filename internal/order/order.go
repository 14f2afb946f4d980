package order

import "github.com/shopspring/decimal"

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Line freezes what the buyer paid for one product.
type Line struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Discount  decimal.Decimal `json:"discount"`
}

// Order is one checkout attempt. Ref is ours; ExternalRef is the payment
// provider's order id.
type Order struct {
	ID                int             `json:"orderId"`
	Ref               string          `json:"ref"`
	UserID            int             `json:"userId"`
	Lines             []Line          `json:"lines"`
	CouponID          *int            `json:"-"`
	CouponCode        string          `json:"couponCode,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	Currency          string          `json:"currency"`
	Status            Status          `json:"status"`
	ExternalRef       string          `json:"externalRef,omitempty"`
	ProviderPaymentID string          `json:"providerPaymentId,omitempty"`
	CreatedAt         string          `json:"createdAt,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
}

func (o Order) ProductIDs() []int {
	ids := make([]int, len(o.Lines))
	for i, l := range o.Lines {
		ids[i] = l.ProductID
	}
	return ids
}
