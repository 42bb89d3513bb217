package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/pkg/auth"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

// LocalIdentityProvider is an IdentityProvider backed by the auth_identities table.
type LocalIdentityProvider struct {
	identities          repository.AuthIdentityRepository
	jwtService          *auth.JWTService
	tokenManager        *manager.TokenManager
	minPasswordLength   int
	requireConfirmation bool
}

// NewLocalIdentityProvider создает локального провайдера идентификации
func NewLocalIdentityProvider(
	identities repository.AuthIdentityRepository,
	jwtService *auth.JWTService,
	tokenManager *manager.TokenManager,
	minPasswordLength int,
	requireConfirmation bool,
) (*LocalIdentityProvider, error) {
	if identities == nil {
		return nil, fmt.Errorf("AuthIdentityRepository is required for LocalIdentityProvider")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for LocalIdentityProvider")
	}
	if tokenManager == nil {
		return nil, fmt.Errorf("TokenManager is required for LocalIdentityProvider")
	}
	if minPasswordLength <= 0 {
		minPasswordLength = 6
	}
	return &LocalIdentityProvider{
		identities:          identities,
		jwtService:          jwtService,
		tokenManager:        tokenManager,
		minPasswordLength:   minPasswordLength,
		requireConfirmation: requireConfirmation,
	}, nil
}

func toIdentity(ai *entity.AuthIdentity) *Identity {
	return &Identity{Subject: ai.ID, Email: ai.Email, EmailConfirmed: ai.IsConfirmed()}
}

func (p *LocalIdentityProvider) SignUp(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	email = normalizeEmail(email)
	if len(password) < p.minPasswordLength {
		return nil, nil, apperrors.NewProviderError(apperrors.CodeWeakPassword,
			fmt.Sprintf("Password should be at least %d characters", p.minPasswordLength), "")
	}

	record := &entity.AuthIdentity{Email: email, Password: password}
	if !p.requireConfirmation {
		now := time.Now()
		record.EmailConfirmedAt = &now
	}
	if err := p.identities.Create(ctx, record); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, nil, apperrors.NewProviderError(apperrors.CodeUserAlreadyExists, "User already registered", err.Error())
		}
		return nil, nil, unavailable(err)
	}

	identity := toIdentity(record)
	if p.requireConfirmation {
		return identity, nil, nil
	}
	session, err := p.tokenManager.IssueSession(ctx, identity.Subject, identity.Email, client)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return identity, session, nil
}

func (p *LocalIdentityProvider) SignInWithPassword(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	record, err := p.identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NewAuthError(apperrors.CodeInvalidCredentials, "Invalid login credentials", nil)
		}
		return nil, nil, unavailable(err)
	}
	if !record.CheckPassword(password) {
		return nil, nil, apperrors.NewAuthError(apperrors.CodeInvalidCredentials, "Invalid login credentials", nil)
	}
	if p.requireConfirmation && !record.IsConfirmed() {
		return nil, nil, apperrors.NewAuthError(apperrors.CodeEmailNotConfirmed, "Email not confirmed", nil)
	}

	if err := p.identities.TouchLastSignIn(ctx, record.ID, time.Now()); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("subject", record.ID).Msg("[IdentityProvider] Failed to record sign-in time")
	}

	session, err := p.tokenManager.IssueSession(ctx, record.ID, record.Email, client)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return toIdentity(record), session, nil
}

func (p *LocalIdentityProvider) GetUser(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := p.jwtService.ParseToken(accessToken)
	if err != nil {
		return nil, apperrors.NewAuthError(apperrors.CodeTokenInvalid, "Invalid or expired token", err)
	}
	record, err := p.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewAuthError(apperrors.CodeTokenInvalid, "Identity no longer exists", err)
		}
		return nil, err
	}
	return toIdentity(record), nil
}

func (p *LocalIdentityProvider) RefreshSession(ctx context.Context, refreshToken string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	subject, err := p.tokenManager.Rotate(ctx, refreshToken)
	if err != nil {
		if manager.IsRefreshRejected(err) {
			return nil, nil, apperrors.NewAuthError(apperrors.CodeInvalidRefreshToken, "Invalid refresh token", err)
		}
		return nil, nil, err
	}
	record, err := p.identities.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NewAuthError(apperrors.CodeInvalidRefreshToken, "Invalid refresh token", err)
		}
		return nil, nil, err
	}
	session, err := p.tokenManager.IssueSession(ctx, record.ID, record.Email, client)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return toIdentity(record), session, nil
}

func (p *LocalIdentityProvider) SignOut(ctx context.Context, refreshToken string) error {
	return p.tokenManager.RevokeRefreshToken(ctx, refreshToken)
}

// DeleteUser removes the identity together with its sessions.
func (p *LocalIdentityProvider) DeleteUser(ctx context.Context, subject string) error {
	if err := p.tokenManager.RevokeAllSubjectTokens(ctx, subject, "identity_deleted"); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("[IdentityProvider] Failed to revoke sessions before delete")
	}
	return p.identities.Delete(ctx, subject)
}

func (p *LocalIdentityProvider) GetUserByEmail(ctx context.Context, email string) (*Identity, error) {
	record, err := p.identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toIdentity(record), nil
}

func (p *LocalIdentityProvider) ConfirmEmail(ctx context.Context, subject string) (*Identity, error) {
	if err := p.identities.MarkEmailConfirmed(ctx, subject, time.Now()); err != nil {
		return nil, err
	}
	record, err := p.identities.GetByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return toIdentity(record), nil
}

func (p *LocalIdentityProvider) UpdateEmail(ctx context.Context, subject, email string) error {
	return p.identities.UpdateEmail(ctx, subject, normalizeEmail(email))
}

// unavailable reports an identity store failure as a provider outage.
func unavailable(err error) error {
	return apperrors.NewProviderError(apperrors.CodeProviderUnavailable, "Identity store unavailable", err.Error())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
