package category

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidName = errors.New("category name is required")

	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
)

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Create derives the slug from the name when none is given.
func (s *Service) Create(ctx context.Context, c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, ErrInvalidName
	}
	if c.Slug == "" {
		c.Slug = c.Name
	}
	c.Slug = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(c.Slug), "-"), "-")
	if c.Slug == "" {
		return Category{}, ErrInvalidName
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
