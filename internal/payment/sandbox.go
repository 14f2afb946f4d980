package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is an in-process gateway for development and tests. Captures of
// orders whose reference was registered with Decline fail with the given
// message.
type Sandbox struct {
	mu       sync.Mutex
	orders   map[string]*Order
	declines map[string]string
}

func NewSandbox() *Sandbox {
	return &Sandbox{orders: make(map[string]*Order), declines: make(map[string]string)}
}

func (s *Sandbox) Decline(reference, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declines[reference] = message
}

func (s *Sandbox) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, reference string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if amount.IsNegative() {
		return Order{}, &ProviderError{Op: "create", Code: "INVALID_AMOUNT", Message: "Amount must not be negative"}
	}
	if len(currency) != 3 {
		return Order{}, &ProviderError{Op: "create", Code: "INVALID_CURRENCY", Message: "Currency code is not supported"}
	}

	o := &Order{
		ExternalRef: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:17],
		Reference:   reference,
		Amount:      amount.Round(2),
		Currency:    strings.ToUpper(currency),
		Status:      StatusCreated,
	}
	s.mu.Lock()
	s.orders[o.ExternalRef] = o
	s.mu.Unlock()
	return *o, nil
}

func (s *Sandbox) CaptureOrder(ctx context.Context, externalRef string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return Capture{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[externalRef]
	if !ok {
		return Capture{}, &ProviderError{Op: "capture", Code: "RESOURCE_NOT_FOUND", Message: "The specified order does not exist"}
	}
	switch o.Status {
	case StatusCompleted:
		return Capture{}, &ProviderError{Op: "capture", Code: "ORDER_ALREADY_CAPTURED", Message: "Order already captured"}
	case StatusDeclined:
		return Capture{}, &ProviderError{Op: "capture", Code: "INSTRUMENT_DECLINED", Message: "The instrument presented was declined"}
	}
	if msg, declined := s.declines[o.Reference]; declined {
		o.Status = StatusDeclined
		return Capture{}, &ProviderError{Op: "capture", Code: "INSTRUMENT_DECLINED", Message: msg}
	}

	o.Status = StatusCompleted
	return Capture{ExternalRef: o.ExternalRef, PaymentID: uuid.NewString(), Status: StatusCompleted}, nil
}
