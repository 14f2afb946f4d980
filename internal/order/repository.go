package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("order is not pending")
)

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	GetByRef(ctx context.Context, ref string) (Order, error)
	SetExternalRef(ctx context.Context, ref, externalRef string) error
	// MarkPaid and MarkFailed only move an order out of pending.
	MarkPaid(ctx context.Context, ref, providerPaymentID string) (Order, error)
	MarkFailed(ctx context.Context, ref string) error
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	PurchasedProductIDs(ctx context.Context, userID int) ([]int, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders []Order
	nextID int
}

func NewInMemoryRepository(seed []Order) *InMemoryRepository {
	r := &InMemoryRepository{orders: make([]Order, 0, len(seed)), nextID: 1}
	for _, o := range seed {
		r.orders = append(r.orders, o)
		if o.ID >= r.nextID {
			r.nextID = o.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt, o.UpdatedAt = now, now
	o.Lines = append([]Line(nil), o.Lines...)
	r.orders = append(r.orders, o)
	return o, nil
}

func (r *InMemoryRepository) find(ref string) int {
	for i := range r.orders {
		if r.orders[i].Ref == ref {
			return i
		}
	}
	return -1
}

func (r *InMemoryRepository) GetByRef(_ context.Context, ref string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.find(ref); i >= 0 {
		return r.orders[i], nil
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) SetExternalRef(_ context.Context, ref, externalRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(ref)
	if i < 0 {
		return ErrNotFound
	}
	r.orders[i].ExternalRef = externalRef
	return nil
}

func (r *InMemoryRepository) MarkPaid(_ context.Context, ref, providerPaymentID string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(ref)
	if i < 0 {
		return Order{}, ErrNotFound
	}
	if r.orders[i].Status != StatusPending {
		return r.orders[i], ErrInvalidTransition
	}
	r.orders[i].Status = StatusPaid
	r.orders[i].ProviderPaymentID = providerPaymentID
	r.orders[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return r.orders[i], nil
}

func (r *InMemoryRepository) MarkFailed(_ context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(ref)
	if i < 0 {
		return ErrNotFound
	}
	if r.orders[i].Status != StatusPending {
		return ErrInvalidTransition
	}
	r.orders[i].Status = StatusFailed
	r.orders[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// ListByUser returns the newest order first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) PurchasedProductIDs(_ context.Context, userID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[int]bool{}
	out := make([]int, 0)
	for _, o := range r.orders {
		if o.UserID != userID || o.Status != StatusPaid {
			continue
		}
		for _, l := range o.Lines {
			if !seen[l.ProductID] {
				seen[l.ProductID] = true
				out = append(out, l.ProductID)
			}
		}
	}
	sort.Ints(out)
	return out, nil
}
