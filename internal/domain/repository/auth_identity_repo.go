package repository

import (
	"context"
	"time"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

// AuthIdentityRepository stores the identity provider's credential records.
type AuthIdentityRepository interface {
	Create(ctx context.Context, identity *entity.AuthIdentity) error
	GetByID(ctx context.Context, subject string) (*entity.AuthIdentity, error)
	GetByEmail(ctx context.Context, email string) (*entity.AuthIdentity, error)
	Delete(ctx context.Context, subject string) error
	MarkEmailConfirmed(ctx context.Context, subject string, at time.Time) error
	UpdateEmail(ctx context.Context, subject, email string) error
	TouchLastSignIn(ctx context.Context, subject string, at time.Time) error
}
