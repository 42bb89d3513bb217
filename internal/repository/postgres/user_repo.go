package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) (*UserRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for UserRepo")
	}
	return &UserRepo{db: db}, nil
}

// Create создает нового пользователя
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	return mapWriteError(r.db.WithContext(ctx).Create(user).Error, "user")
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapReadError(err, "user by id")
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapReadError(err, "user by email")
	}
	return &user, nil
}

// GetByAuthUserID возвращает пользователя по subject провайдера
func (r *UserRepo) GetByAuthUserID(ctx context.Context, subject string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("auth_user_id = ?", subject).First(&user).Error; err != nil {
		return nil, mapReadError(err, "user by subject")
	}
	return &user, nil
}

// LinkAuthUser only fills an empty link; a linked row is never re-pointed.
func (r *UserRepo) LinkAuthUser(ctx context.Context, id uint, subject string) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ? AND auth_user_id IS NULL", id).
		Update("auth_user_id", subject)
	if result.Error != nil {
		return mapWriteError(result.Error, "user link")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateEmail меняет email строки каталога
func (r *UserRepo) UpdateEmail(ctx context.Context, id uint, email string) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("email", email)
	if result.Error != nil {
		return mapWriteError(result.Error, "user email")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает пользователей с пагинацией
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
