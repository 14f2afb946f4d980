package settings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BundleInvalidator drops precomputed bundles, which embed the settings.
type BundleInvalidator interface {
	ClearBundlePaths(ctx context.Context) error
}

// Service reads settings through an optional cache. Concurrent misses
// share a single repository load.
type Service struct {
	repo    Repository
	cache   Cache
	bundles BundleInvalidator
	sfg     singleflight.Group
	log     *zap.Logger
}

func NewService(repo Repository, cache Cache, bundles BundleInvalidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, bundles: bundles, log: log}
}

func (s *Service) Get(ctx context.Context) (PdfSettings, error) {
	v, err, _ := s.sfg.Do(cacheKey, func() (interface{}, error) {
		if s.cache != nil {
			cached, err := s.cache.Get(ctx)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.log.Warn("settings cache read failed", zap.Error(err))
			}
		}

		loaded, err := s.repo.Get(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, loaded); err != nil {
				s.log.Warn("settings cache write failed", zap.Error(err))
			}
		}
		return loaded, nil
	})
	if err != nil {
		return PdfSettings{}, err
	}
	return v.(PdfSettings), nil
}

func (s *Service) Update(ctx context.Context, in PdfSettings) (PdfSettings, error) {
	updated, err := s.repo.Update(ctx, in)
	if err != nil {
		return PdfSettings{}, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx); err != nil {
			s.log.Warn("settings cache invalidation failed", zap.Error(err))
		}
	}
	if s.bundles != nil {
		if err := s.bundles.ClearBundlePaths(ctx); err != nil {
			return PdfSettings{}, fmt.Errorf("clear bundles: %w", err)
		}
	}
	s.log.Info("pdf settings updated")
	return updated, nil
}
