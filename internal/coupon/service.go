package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidBatch = errors.New("invalid coupon batch")

	hundred = decimal.NewFromInt(100)
)

const codeAttempts = 3

// IssueRequest describes an admin batch: one coupon per user.
type IssueRequest struct {
	UserIDs         []int           `json:"userIds"`
	Kind            Kind            `json:"kind"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MaxItems        int             `json:"maxItems"`
	Prefix          string          `json:"prefix"`
}

type Service struct {
	repo           Repository
	welcomePercent decimal.Decimal
	log            *zap.Logger
	now            func() time.Time
}

func NewService(repo Repository, welcomePercent decimal.Decimal, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, welcomePercent: welcomePercent, log: log, now: time.Now}
}

// Validate resolves a code for its owner. Anonymous callers, foreign codes
// and used codes all get ErrNotFound.
func (s *Service) Validate(ctx context.Context, userID int, code string) (Coupon, error) {
	code = normalizeCode(code)
	if userID <= 0 || code == "" {
		return Coupon{}, ErrNotFound
	}
	return s.repo.FindUsable(ctx, code, userID)
}

// MarkUsed redeems the coupon. Only the first call for a coupon succeeds;
// later calls get ErrNotFound.
func (s *Service) MarkUsed(ctx context.Context, couponID int) error {
	if err := s.repo.MarkUsed(ctx, couponID, s.now()); err != nil {
		return err
	}
	s.log.Info("coupon redeemed", zap.Int("coupon_id", couponID))
	return nil
}

// Release hands a redeemed coupon back when the payment it was claimed for
// did not go through.
func (s *Service) Release(ctx context.Context, couponID int) error {
	if err := s.repo.Release(ctx, couponID); err != nil {
		return err
	}
	s.log.Info("coupon released", zap.Int("coupon_id", couponID))
	return nil
}

// ListForUser returns the user's unused coupons. The list is advisory;
// checkout always re-validates.
func (s *Service) ListForUser(ctx context.Context, userID int) ([]Coupon, error) {
	if userID <= 0 {
		return []Coupon{}, nil
	}
	return s.repo.ListUnused(ctx, userID)
}

// GrantWelcome gives a newly registered user a whole-cart percentage coupon.
func (s *Service) GrantWelcome(ctx context.Context, userID int) error {
	_, err := s.issue(ctx, Coupon{
		Kind:            KindWelcomePercent,
		DiscountPercent: s.welcomePercent,
		OwnerUserID:     userID,
	}, "WELCOME")
	return err
}

func (s *Service) IssueBatch(ctx context.Context, req IssueRequest) ([]Coupon, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	prefix := normalizeCode(req.Prefix)
	if prefix == "" {
		prefix = defaultPrefix(req.Kind)
	}

	out := make([]Coupon, 0, len(req.UserIDs))
	for _, uid := range req.UserIDs {
		c, err := s.issue(ctx, Coupon{
			Kind:            req.Kind,
			DiscountPercent: req.DiscountPercent,
			MaxItems:        req.MaxItems,
			OwnerUserID:     uid,
		}, prefix)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	s.log.Info("coupon batch issued", zap.String("kind", string(req.Kind)), zap.Int("count", len(out)))
	return out, nil
}

func (s *Service) issue(ctx context.Context, c Coupon, prefix string) (Coupon, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		c.Code = newCode(prefix)
		created, err := s.repo.Create(ctx, c)
		if err == ErrCodeExists {
			continue
		}
		return created, err
	}
	return Coupon{}, ErrCodeExists
}

func (r IssueRequest) validate() error {
	if len(r.UserIDs) == 0 || !r.Kind.Valid() {
		return ErrInvalidBatch
	}
	if !r.DiscountPercent.IsPositive() || r.DiscountPercent.GreaterThan(hundred) {
		return ErrInvalidBatch
	}
	if r.MaxItems < 0 || (r.Kind == KindBulkPercentCapped && r.MaxItems == 0) {
		return ErrInvalidBatch
	}
	for _, id := range r.UserIDs {
		if id <= 0 {
			return ErrInvalidBatch
		}
	}
	return nil
}

func defaultPrefix(k Kind) string {
	switch k {
	case KindWelcomePercent:
		return "WELCOME"
	case KindBulkPercentCapped:
		return "BULK"
	default:
		return "GIFT"
	}
}

func newCode(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:10]
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
