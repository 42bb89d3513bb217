package manager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/pkg/auth"
)

// Константы для настройки токенов
const (
	// Время жизни refresh-токена (30 дней)
	RefreshTokenLifetime = 30 * 24 * time.Hour
	// Максимальное количество активных refresh-токенов на пользователя (по умолчанию)
	DefaultMaxRefreshTokensPerUser = 10

	TokenTypeBearer = "bearer"
)

// TokenErrorType определяет тип ошибки токена
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	InvalidRefreshToken   TokenErrorType = "INVALID_REFRESH_TOKEN"
	ExpiredRefreshToken   TokenErrorType = "EXPIRED_REFRESH_TOKEN"
	TokenRevoked          TokenErrorType = "TOKEN_REVOKED"
	DatabaseError         TokenErrorType = "DATABASE_ERROR"
)

// TokenError представляет ошибку при работе с токенами
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TokenError) Unwrap() error { return e.Err }

// NewTokenError создает новую ошибку токена
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{Type: tokenType, Message: message, Err: err}
}

// IsRefreshRejected reports whether err means the presented refresh token is unusable
// (as opposed to an infrastructure failure).
func IsRefreshRejected(err error) bool {
	var te *TokenError
	if !errors.As(err, &te) {
		return false
	}
	switch te.Type {
	case InvalidRefreshToken, ExpiredRefreshToken, TokenRevoked:
		return true
	}
	return false
}

// Session is the token pair handed to clients.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// ClientInfo identifies where a session was opened.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// TokenManager управляет выдачей и ротацией токенов
type TokenManager struct {
	jwtService              *auth.JWTService
	refreshTokenRepo        repository.RefreshTokenRepository
	refreshTokenExpiry      time.Duration
	maxRefreshTokensPerUser int
}

// NewTokenManager создает новый менеджер токенов
func NewTokenManager(jwtService *auth.JWTService, refreshTokenRepo repository.RefreshTokenRepository, refreshTTL time.Duration, sessionLimit int) (*TokenManager, error) {
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for TokenManager")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	if refreshTTL <= 0 {
		refreshTTL = RefreshTokenLifetime
	}
	if sessionLimit <= 0 {
		sessionLimit = DefaultMaxRefreshTokensPerUser
	}
	return &TokenManager{
		jwtService:              jwtService,
		refreshTokenRepo:        refreshTokenRepo,
		refreshTokenExpiry:      refreshTTL,
		maxRefreshTokensPerUser: sessionLimit,
	}, nil
}

// IssueSession выдает новую пару токенов для субъекта
func (m *TokenManager) IssueSession(ctx context.Context, subject, email string, client ClientInfo) (*Session, error) {
	accessToken, expiresAt, err := m.jwtService.GenerateAccessToken(subject, email)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "не удалось сгенерировать access токен", err)
	}

	refreshToken, err := m.generateRefreshToken(ctx, subject, client)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "не удалось сгенерировать refresh токен", err)
	}

	if err := m.limitUserSessions(ctx, subject); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("[TokenManager] Не удалось применить лимит сессий")
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int(m.jwtService.AccessTTL().Seconds()),
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

// Rotate validates a refresh token and retires it, returning its subject.
// Presenting an already revoked token revokes every session of that subject.
func (m *TokenManager) Rotate(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", NewTokenError(InvalidRefreshToken, "refresh токен отсутствует", nil)
	}
	tokenHash := HashToken(refreshToken)

	stored, err := m.refreshTokenRepo.GetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", NewTokenError(InvalidRefreshToken, "refresh токен не найден", err)
		}
		return "", NewTokenError(DatabaseError, "ошибка получения refresh токена", err)
	}

	if stored.RevokedAt != nil {
		log.Warn().Str("subject", stored.Subject).Msg("[TokenManager] Повторное использование отозванного refresh токена, отзываем все сессии")
		if err := m.refreshTokenRepo.RevokeAllForSubject(ctx, stored.Subject, "reuse_detected"); err != nil {
			log.Error().Err(err).Str("subject", stored.Subject).Msg("[TokenManager] Ошибка отзыва сессий")
		}
		return "", NewTokenError(TokenRevoked, "refresh токен отозван", nil)
	}
	if !stored.IsValid() {
		return "", NewTokenError(ExpiredRefreshToken, "refresh токен истек", nil)
	}

	if err := m.refreshTokenRepo.RevokeByHash(ctx, tokenHash, "rotated"); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// lost a concurrent rotation race
			return "", NewTokenError(TokenRevoked, "refresh токен уже использован", err)
		}
		return "", NewTokenError(DatabaseError, "ошибка ротации refresh токена", err)
	}
	return stored.Subject, nil
}

// RevokeRefreshToken отзывает refresh токен (logout)
func (m *TokenManager) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := m.refreshTokenRepo.RevokeByHash(ctx, HashToken(refreshToken), "logout")
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("ошибка отзыва refresh токена: %w", err)
	}
	return nil
}

// RevokeAllSubjectTokens отзывает все сессии субъекта
func (m *TokenManager) RevokeAllSubjectTokens(ctx context.Context, subject, reason string) error {
	return m.refreshTokenRepo.RevokeAllForSubject(ctx, subject, reason)
}

// CleanupExpiredTokens удаляет истекшие refresh токены
func (m *TokenManager) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	count, err := m.refreshTokenRepo.CleanupExpiredTokens(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("[TokenManager] Удалены истекшие refresh токены")
	}
	return count, nil
}

func (m *TokenManager) generateRefreshToken(ctx context.Context, subject string, client ClientInfo) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	tokenString := hex.EncodeToString(randomBytes)

	token := entity.NewRefreshToken(subject, HashToken(tokenString), client.IPAddress, client.UserAgent, time.Now().Add(m.refreshTokenExpiry))
	if _, err := m.refreshTokenRepo.CreateToken(ctx, token); err != nil {
		return "", err
	}
	return tokenString, nil
}

// HashToken хеширует refresh токен (SHA-256, hex)
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (m *TokenManager) limitUserSessions(ctx context.Context, subject string) error {
	count, err := m.refreshTokenRepo.CountActiveForSubject(ctx, subject)
	if err != nil {
		return fmt.Errorf("ошибка подсчета токенов: %w", err)
	}
	if count > m.maxRefreshTokensPerUser {
		log.Info().Str("subject", subject).Int("count", count).Int("limit", m.maxRefreshTokensPerUser).
			Msg("[TokenManager] Превышен лимит сессий, отзываем старые")
		if err := m.refreshTokenRepo.RevokeOldestForSubject(ctx, subject, m.maxRefreshTokensPerUser); err != nil {
			return fmt.Errorf("ошибка отзыва старых токенов: %w", err)
		}
	}
	return nil
}
