package coupon

import "github.com/shopspring/decimal"

// Kind selects how a coupon's percentage is spread over the cart.
type Kind string

const (
	KindWelcomePercent    Kind = "WELCOME_PERCENT"
	KindBulkPercentCapped Kind = "BULK_PERCENT_CAPPED"
	KindAdminManual       Kind = "ADMIN_MANUAL"
)

func (k Kind) Valid() bool {
	switch k {
	case KindWelcomePercent, KindBulkPercentCapped, KindAdminManual:
		return true
	}
	return false
}

// Coupon belongs to exactly one user and can be redeemed once.
type Coupon struct {
	ID              int             `json:"couponId"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MaxItems        int             `json:"maxItems"`
	Kind            Kind            `json:"kind"`
	Used            bool            `json:"used"`
	OwnerUserID     int             `json:"ownerUserId"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UsedAt          *string         `json:"usedAt,omitempty"`
}
