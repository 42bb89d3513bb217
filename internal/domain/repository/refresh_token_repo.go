package repository

import (
	"context"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
)

// RefreshTokenRepository интерфейс для работы с refresh-токенами.
// Токены хранятся только в виде SHA-256 хеша.
type RefreshTokenRepository interface {
	CreateToken(ctx context.Context, token *entity.RefreshToken) (uint, error)
	GetTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	// RevokeByHash marks a token expired; ErrNotFound if no active token matched.
	RevokeByHash(ctx context.Context, tokenHash, reason string) error
	RevokeAllForSubject(ctx context.Context, subject, reason string) error
	CountActiveForSubject(ctx context.Context, subject string) (int, error)
	// RevokeOldestForSubject keeps the newest keep tokens active.
	RevokeOldestForSubject(ctx context.Context, subject string, keep int) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}
