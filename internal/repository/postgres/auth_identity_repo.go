package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// AuthIdentityRepo хранит учетные данные провайдера идентификации
type AuthIdentityRepo struct {
	db *gorm.DB
}

func NewAuthIdentityRepo(db *gorm.DB) (*AuthIdentityRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for AuthIdentityRepo")
	}
	return &AuthIdentityRepo{db: db}, nil
}

func (r *AuthIdentityRepo) Create(ctx context.Context, identity *entity.AuthIdentity) error {
	return mapWriteError(r.db.WithContext(ctx).Create(identity).Error, "identity")
}

func (r *AuthIdentityRepo) GetByID(ctx context.Context, subject string) (*entity.AuthIdentity, error) {
	var identity entity.AuthIdentity
	if err := r.db.WithContext(ctx).Where("id = ?", subject).First(&identity).Error; err != nil {
		return nil, mapReadError(err, "identity by id")
	}
	return &identity, nil
}

func (r *AuthIdentityRepo) GetByEmail(ctx context.Context, email string) (*entity.AuthIdentity, error) {
	var identity entity.AuthIdentity
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		return nil, mapReadError(err, "identity by email")
	}
	return &identity, nil
}

// Delete removes the identity. Used as the compensating step of a failed signup.
func (r *AuthIdentityRepo) Delete(ctx context.Context, subject string) error {
	result := r.db.WithContext(ctx).Where("id = ?", subject).Delete(&entity.AuthIdentity{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete identity %s: %w", subject, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *AuthIdentityRepo) MarkEmailConfirmed(ctx context.Context, subject string, at time.Time) error {
	return r.updateColumns(ctx, subject, map[string]interface{}{"email_confirmed_at": at})
}

func (r *AuthIdentityRepo) UpdateEmail(ctx context.Context, subject, email string) error {
	return r.updateColumns(ctx, subject, map[string]interface{}{"email": email})
}

func (r *AuthIdentityRepo) TouchLastSignIn(ctx context.Context, subject string, at time.Time) error {
	return r.updateColumns(ctx, subject, map[string]interface{}{"last_sign_in_at": at})
}

func (r *AuthIdentityRepo) updateColumns(ctx context.Context, subject string, columns map[string]interface{}) error {
	columns["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&entity.AuthIdentity{}).Where("id = ?", subject).UpdateColumns(columns)
	if result.Error != nil {
		return mapWriteError(result.Error, "identity")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
