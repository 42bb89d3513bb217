package repository

import (
	"context"
	"time"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

// EmailVerificationRepository persists verification code attempts.
type EmailVerificationRepository interface {
	Create(ctx context.Context, code *entity.EmailVerificationCode) error
	GetLatestActiveBySubject(ctx context.Context, subject string) (*entity.EmailVerificationCode, error)
	IncrementAttempts(ctx context.Context, id uint) error
	MarkConsumed(ctx context.Context, id uint) error
	DeleteBySubject(ctx context.Context, subject string) error
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}
