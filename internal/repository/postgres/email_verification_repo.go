package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

type EmailVerificationRepo struct {
	db *gorm.DB
}

func NewEmailVerificationRepo(db *gorm.DB) (*EmailVerificationRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for EmailVerificationRepo")
	}
	return &EmailVerificationRepo{db: db}, nil
}

func (r *EmailVerificationRepo) Create(ctx context.Context, code *entity.EmailVerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *EmailVerificationRepo) GetLatestActiveBySubject(ctx context.Context, subject string) (*entity.EmailVerificationCode, error) {
	var code entity.EmailVerificationCode
	err := r.db.WithContext(ctx).
		Where("subject = ? AND consumed_at IS NULL", subject).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return nil, mapReadError(err, "latest active verification code")
	}
	return &code, nil
}

func (r *EmailVerificationRepo) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entity.EmailVerificationCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func (r *EmailVerificationRepo) MarkConsumed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entity.EmailVerificationCode{}).
		Where("id = ?", id).
		Update("consumed_at", time.Now()).Error
}

func (r *EmailVerificationRepo) DeleteBySubject(ctx context.Context, subject string) error {
	return r.db.WithContext(ctx).Where("subject = ?", subject).Delete(&entity.EmailVerificationCode{}).Error
}

// DeleteExpiredBefore removes codes that expired or were consumed before the cutoff.
func (r *EmailVerificationRepo) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR consumed_at < ?", before, before).
		Delete(&entity.EmailVerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired verification codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
