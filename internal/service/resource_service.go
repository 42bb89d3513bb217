package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// ResourceOption configures a ResourceService.
type ResourceOption[T any] func(*ResourceService[T])

// WithListCache caches list results in Redis. Any write bumps a version
// counter, which retires every cached page at once.
func WithListCache[T any](cache repository.CacheRepository, ttl time.Duration) ResourceOption[T] {
	return func(s *ResourceService[T]) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithAfterCreate registers a hook run after a successful insert.
func WithAfterCreate[T any](fn func(ctx context.Context, record *T)) ResourceOption[T] {
	return func(s *ResourceService[T]) {
		s.afterCreate = fn
	}
}

// ResourceService is the pass-through service shared by all marketplace resources.
type ResourceService[T any] struct {
	name        string
	repo        repository.ResourceRepository[T]
	cache       repository.CacheRepository
	cacheTTL    time.Duration
	afterCreate func(ctx context.Context, record *T)
}

func NewResourceService[T any](name string, repo repository.ResourceRepository[T], opts ...ResourceOption[T]) (*ResourceService[T], error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required for %s service", name)
	}
	s := &ResourceService[T]{name: name, repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ResourceService[T]) Name() string { return s.name }

// Page converts 1-based page and page_size into limit and offset.
func Page(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

func (s *ResourceService[T]) List(ctx context.Context, q repository.ListQuery) ([]T, error) {
	if s.cache == nil {
		return s.repo.List(ctx, q)
	}

	key, ok := s.listCacheKey(ctx, q)
	if ok {
		var cached []T
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	records, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := s.cache.SetJSON(ctx, key, records, s.cacheTTL); err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("resource", s.name).Msg("[ResourceService] Failed to cache list")
		}
	}
	return records, nil
}

func (s *ResourceService[T]) Get(ctx context.Context, key map[string]interface{}) (*T, error) {
	return s.repo.Get(ctx, key)
}

func (s *ResourceService[T]) Create(ctx context.Context, record *T) (*T, error) {
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	if s.afterCreate != nil {
		s.afterCreate(ctx, record)
	}
	return record, nil
}

// Update applies changes to the row at key. An empty change set is rejected.
func (s *ResourceService[T]) Update(ctx context.Context, key, changes map[string]interface{}) (*T, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s key is required", apperrors.ErrValidation, s.name)
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields provided", apperrors.ErrValidation)
	}
	record, err := s.repo.Update(ctx, key, changes)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return record, nil
}

func (s *ResourceService[T]) Delete(ctx context.Context, key map[string]interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: %s key is required", apperrors.ErrValidation, s.name)
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ResourceService[T]) versionKey() string {
	return "resource:" + s.name + ":version"
}

func (s *ResourceService[T]) listCacheKey(ctx context.Context, q repository.ListQuery) (string, bool) {
	version, err := s.cache.Get(ctx, s.versionKey())
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		version = "0"
	case err != nil:
		return "", false
	}
	// fmt prints maps with sorted keys
	return fmt.Sprintf("resource:%s:%s:list:%v:%s:%d:%d", s.name, version, q.Filters, q.OrderBy, q.Limit, q.Offset), true
}

func (s *ResourceService[T]) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Increment(ctx, s.versionKey()); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("resource", s.name).Msg("[ResourceService] Failed to bump list cache version")
	}
}
