package user

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// WelcomeGranter hands a freshly registered user their welcome coupon.
type WelcomeGranter interface {
	GrantWelcome(ctx context.Context, userID int) error
}

type Service struct {
	repo    Repository
	welcome WelcomeGranter
	log     *zap.Logger
}

func NewService(repo Repository, welcome WelcomeGranter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, welcome: welcome, log: log}
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int, user User) (User, error) {
	if user.Password != "" && !looksLikeBcrypt(user.Password) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.Password = string(hashed)
	}
	return s.repo.Update(ctx, id, user)
}

func (s *Service) Register(ctx context.Context, user User) (User, error) {
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return User{}, ErrEmailExists
	} else if err != ErrNotFound {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user.Password = string(hashed)
	user.IsAdmin = false
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}

	// a missing welcome coupon must not fail the sign-up
	if s.welcome != nil {
		if err := s.welcome.GrantWelcome(ctx, created.ID); err != nil {
			s.log.Warn("welcome coupon grant failed", zap.Int("user_id", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

func looksLikeBcrypt(value string) bool {
	return len(value) > 4 && value[0:2] == "$2"
}
