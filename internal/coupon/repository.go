package coupon

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound covers unknown, foreign and already used codes alike.
	ErrNotFound   = errors.New("coupon not found")
	ErrCodeExists = errors.New("coupon code already exists")
)

type Repository interface {
	// FindUsable looks a code up among the owner's unused coupons.
	FindUsable(ctx context.Context, code string, ownerUserID int) (Coupon, error)
	ListUnused(ctx context.Context, ownerUserID int) ([]Coupon, error)
	Create(ctx context.Context, c Coupon) (Coupon, error)
	// MarkUsed flips the used flag only if it is still clear. Unknown and
	// already used coupons return ErrNotFound, so one coupon redeems once.
	MarkUsed(ctx context.Context, id int, at time.Time) error
	// Release clears a claim whose payment never went through.
	Release(ctx context.Context, id int) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	coupons []Coupon
	nextID  int
}

func NewInMemoryRepository(seed []Coupon) *InMemoryRepository {
	r := &InMemoryRepository{coupons: make([]Coupon, 0, len(seed)), nextID: 1}
	for _, c := range seed {
		r.coupons = append(r.coupons, c)
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) FindUsable(_ context.Context, code string, ownerUserID int) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.coupons {
		if c.Code == code && c.OwnerUserID == ownerUserID && !c.Used {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}

func (r *InMemoryRepository) ListUnused(_ context.Context, ownerUserID int) ([]Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Coupon, 0)
	for _, c := range r.coupons {
		if c.OwnerUserID == ownerUserID && !c.Used {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, c Coupon) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.coupons {
		if existing.Code == c.Code {
			return Coupon{}, ErrCodeExists
		}
	}
	c.ID = r.nextID
	r.nextID++
	if c.CreatedAt == "" {
		c.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.coupons = append(r.coupons, c)
	return c, nil
}

func (r *InMemoryRepository) MarkUsed(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.coupons {
		if r.coupons[i].ID != id || r.coupons[i].Used {
			continue
		}
		ts := at.UTC().Format(time.RFC3339)
		r.coupons[i].Used = true
		r.coupons[i].UsedAt = &ts
		return nil
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Release(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.coupons {
		if r.coupons[i].ID == id {
			r.coupons[i].Used = false
			r.coupons[i].UsedAt = nil
			return nil
		}
	}
	return ErrNotFound
}
