package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// RefreshTokenRepo реализует интерфейс RefreshTokenRepository с использованием PostgreSQL и GORM
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo создает новый экземпляр RefreshTokenRepo
func NewRefreshTokenRepo(gormDB *gorm.DB) (*RefreshTokenRepo, error) {
	if gormDB == nil {
		return nil, fmt.Errorf("GORM DB instance is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: gormDB}, nil
}

// CreateToken сохраняет новый refresh токен и возвращает его ID
func (r *RefreshTokenRepo) CreateToken(ctx context.Context, token *entity.RefreshToken) (uint, error) {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return 0, fmt.Errorf("ошибка создания refresh токена: %w", err)
	}
	if token.ID == 0 {
		return 0, fmt.Errorf("не удалось получить ID после создания refresh токена")
	}
	return token.ID, nil
}

// GetTokenByHash находит refresh токен по SHA-256 хешу.
// Revoked and expired rows are returned too; validity is checked by the caller.
func (r *RefreshTokenRepo) GetTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, mapReadError(err, "refresh token")
	}
	return &token, nil
}

func revokeColumns(reason string) map[string]interface{} {
	return map[string]interface{}{
		"is_expired": true,
		"revoked_at": time.Now(),
		"reason":     reason,
	}
}

// RevokeByHash помечает один активный токен как отозванный
func (r *RefreshTokenRepo) RevokeByHash(ctx context.Context, tokenHash, reason string) error {
	result := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("token_hash = ? AND is_expired = ?", tokenHash, false).
		Updates(revokeColumns(reason))
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва refresh токена: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RevokeAllForSubject отзывает все активные токены субъекта
func (r *RefreshTokenRepo) RevokeAllForSubject(ctx context.Context, subject, reason string) error {
	result := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("subject = ? AND is_expired = ?", subject, false).
		Updates(revokeColumns(reason))
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва токенов субъекта %s: %w", subject, result.Error)
	}
	return nil
}

// CountActiveForSubject возвращает количество активных токенов
func (r *RefreshTokenRepo) CountActiveForSubject(ctx context.Context, subject string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("subject = ? AND is_expired = ? AND expires_at > ?", subject, false, time.Now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета токенов субъекта %s: %w", subject, err)
	}
	return int(count), nil
}

// RevokeOldestForSubject отзывает самые старые активные токены, оставляя keep новых
func (r *RefreshTokenRepo) RevokeOldestForSubject(ctx context.Context, subject string, keep int) error {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Select("id").
		Where("subject = ? AND is_expired = ? AND expires_at > ?", subject, false, time.Now()).
		Order("created_at DESC").
		Offset(keep).
		Find(&ids).Error
	if err != nil {
		return fmt.Errorf("ошибка получения старых токенов субъекта %s: %w", subject, err)
	}
	if len(ids) == 0 {
		return nil
	}

	err = r.db.WithContext(ctx).Model(&entity.RefreshToken{}).
		Where("id IN ?", ids).
		Updates(revokeColumns("session_limit")).Error
	if err != nil {
		return fmt.Errorf("ошибка отзыва старых токенов субъекта %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Int("revoked", len(ids)).Msg("[RefreshTokenRepo] Старые сессии отозваны")
	return nil
}

// CleanupExpiredTokens удаляет токены с истекшим сроком.
// Revoked rows stay until expires_at so a replayed token is still recognised as reuse.
func (r *RefreshTokenRepo) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка очистки истекших refresh токенов: %w", result.Error)
	}
	return result.RowsAffected, nil
}
