package repository

import (
	"context"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с каталогом пользователей
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByAuthUserID looks a row up by its canonical provider subject.
	GetByAuthUserID(ctx context.Context, subject string) (*entity.User, error)
	// LinkAuthUser sets auth_user_id on a row that has none yet.
	LinkAuthUser(ctx context.Context, id uint, subject string) error
	UpdateEmail(ctx context.Context, id uint, email string) error
	List(ctx context.Context, limit, offset int) ([]entity.User, error)
}
