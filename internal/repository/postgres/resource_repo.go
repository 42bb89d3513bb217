package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// ResourceRepo is a table pass-through for one marketplace entity type.
type ResourceRepo[T any] struct {
	db   *gorm.DB
	name string
}

// NewResourceRepo creates a repository; name is used in error messages only.
func NewResourceRepo[T any](db *gorm.DB, name string) (*ResourceRepo[T], error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for %s repository", name)
	}
	return &ResourceRepo[T]{db: db, name: name}, nil
}

func (r *ResourceRepo[T]) List(ctx context.Context, q repository.ListQuery) ([]T, error) {
	records := make([]T, 0)
	tx := r.db.WithContext(ctx).Model(new(T))
	if len(q.Filters) > 0 {
		tx = tx.Where(q.Filters)
	}
	if q.OrderBy != "" {
		tx = tx.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.name, err)
	}
	return records, nil
}

func (r *ResourceRepo[T]) Get(ctx context.Context, key map[string]interface{}) (*T, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s key is required", apperrors.ErrValidation, r.name)
	}
	record := new(T)
	if err := r.db.WithContext(ctx).Where(key).First(record).Error; err != nil {
		return nil, mapReadError(err, r.name)
	}
	return record, nil
}

func (r *ResourceRepo[T]) Create(ctx context.Context, record *T) error {
	return mapWriteError(r.db.WithContext(ctx).Create(record).Error, r.name)
}

// Update applies only the given columns and returns the stored row.
func (r *ResourceRepo[T]) Update(ctx context.Context, key, changes map[string]interface{}) (*T, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s key is required", apperrors.ErrValidation, r.name)
	}
	if len(changes) > 0 {
		result := r.db.WithContext(ctx).Model(new(T)).Where(key).Updates(changes)
		if result.Error != nil {
			return nil, mapWriteError(result.Error, r.name)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrNotFound
		}
	}
	return r.Get(ctx, key)
}

func (r *ResourceRepo[T]) Delete(ctx context.Context, key map[string]interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: %s key is required", apperrors.ErrValidation, r.name)
	}
	result := r.db.WithContext(ctx).Where(key).Delete(new(T))
	if result.Error != nil {
		return mapWriteError(result.Error, r.name)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
