package repository

import (
	"context"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

// AdminRepository is the admin registry.
// Create returns apperrors.ErrConflict when the subject already has a grant.
type AdminRepository interface {
	Create(ctx context.Context, grant *entity.AdminGrant) error
	GetByID(ctx context.Context, id string) (*entity.AdminGrant, error)
	GetBySubject(ctx context.Context, subject string) (*entity.AdminGrant, error)
	List(ctx context.Context) ([]entity.AdminGrant, error)
	UpdateRole(ctx context.Context, id, role string) (*entity.AdminGrant, error)
	Delete(ctx context.Context, id string) error
}
