package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// AdminRepo реализует реестр администраторов (таблица admins)
type AdminRepo struct {
	db *gorm.DB
}

func NewAdminRepo(db *gorm.DB) (*AdminRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for AdminRepo")
	}
	return &AdminRepo{db: db}, nil
}

// Create inserts a grant. The unique constraint on admins.user_id is the only
// source of ErrConflict; no pre-check is made.
func (r *AdminRepo) Create(ctx context.Context, grant *entity.AdminGrant) error {
	return mapWriteError(r.db.WithContext(ctx).Create(grant).Error, "admin grant")
}

func (r *AdminRepo) GetByID(ctx context.Context, id string) (*entity.AdminGrant, error) {
	var grant entity.AdminGrant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&grant).Error; err != nil {
		return nil, mapReadError(err, "admin grant by id")
	}
	return &grant, nil
}

func (r *AdminRepo) GetBySubject(ctx context.Context, subject string) (*entity.AdminGrant, error) {
	var grant entity.AdminGrant
	if err := r.db.WithContext(ctx).Where("user_id = ?", subject).First(&grant).Error; err != nil {
		return nil, mapReadError(err, "admin grant by subject")
	}
	return &grant, nil
}

func (r *AdminRepo) List(ctx context.Context) ([]entity.AdminGrant, error) {
	var grants []entity.AdminGrant
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin grants: %w", err)
	}
	return grants, nil
}

func (r *AdminRepo) UpdateRole(ctx context.Context, id, role string) (*entity.AdminGrant, error) {
	var grant entity.AdminGrant
	result := r.db.WithContext(ctx).Model(&grant).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return nil, mapWriteError(result.Error, "admin grant")
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &grant, nil
}

// Delete is a hard delete.
func (r *AdminRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.AdminGrant{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete admin grant %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
