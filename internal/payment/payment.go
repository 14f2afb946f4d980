// Package payment talks to the card processor. Only the sandbox gateway is
// implemented; it behaves like a hosted-checkout provider with a two-step
// create/capture flow.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusDeclined  OrderStatus = "DECLINED"
)

// Order is the provider-side order created before the buyer approves.
type Order struct {
	ExternalRef string          `json:"id"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
}

// Capture is the result of collecting the funds of an approved order.
type Capture struct {
	ExternalRef string      `json:"orderId"`
	PaymentID   string      `json:"paymentId"`
	Status      OrderStatus `json:"status"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, reference string) (Order, error)
	CaptureOrder(ctx context.Context, externalRef string) (Capture, error)
}

// ProviderError carries the provider's message so it can be shown to the
// buyer unchanged.
type ProviderError struct {
	Op      string
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
