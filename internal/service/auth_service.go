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
	"github.com/yourusername/marketplace-api/internal/metrics"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/pkg/auth"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

const wsTicketKeyPrefix = "ws_ticket:"

// AuthService adapts the identity provider to the directory and admin registry.
type AuthService struct {
	provider     IdentityProvider
	userRepo     repository.UserRepository
	reconciler   *ProfileReconciler
	verification *EmailVerificationService
	jwtService   *auth.JWTService
	cache        repository.CacheRepository
}

// RegisterInput содержит данные для регистрации
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Username    string
	Client      manager.ClientInfo
}

// RegisterResult is the outcome of a signup. Session is nil while the email
// is pending verification.
type RegisterResult struct {
	User                 *entity.Profile  `json:"user"`
	Session              *manager.Session `json:"session"`
	RequiresVerification bool             `json:"requiresVerification"`
	Message              string           `json:"message,omitempty"`
}

const pendingVerificationMessage = "User created successfully. Please check your email to confirm your account."

// LoginResult is a reconciled profile with a fresh session.
type LoginResult struct {
	User    *entity.Profile  `json:"user"`
	Session *manager.Session `json:"session"`
}

// NewAuthService создает сервис аутентификации. verification and cache may be nil.
func NewAuthService(
	provider IdentityProvider,
	userRepo repository.UserRepository,
	reconciler *ProfileReconciler,
	verification *EmailVerificationService,
	jwtService *auth.JWTService,
	cache repository.CacheRepository,
) (*AuthService, error) {
	if provider == nil {
		return nil, fmt.Errorf("IdentityProvider is required for AuthService")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("ProfileReconciler is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	return &AuthService{
		provider:     provider,
		userRepo:     userRepo,
		reconciler:   reconciler,
		verification: verification,
		jwtService:   jwtService,
		cache:        cache,
	}, nil
}

// Register creates the provider identity and then the directory row. If the
// directory insert fails the identity is deleted again.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (result *RegisterResult, err error) {
	defer func() { metrics.RecordAuthEvent("register", apperrors.CodeOf(err), err) }()

	email := normalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	identity, session, err := s.provider.SignUp(ctx, email, input.Password, input.Client)
	if err != nil {
		return nil, err
	}

	user := entity.NewDirectoryUser(identity.Subject, identity.Email, input.DisplayName, input.Username)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if delErr := s.provider.DeleteUser(ctx, identity.Subject); delErr != nil {
			log.Ctx(ctx).Error().Err(delErr).Str("subject", identity.Subject).
				Msg("[AuthService] Compensation failed: identity left without directory row")
		}
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create directory row: %w", err)
	}

	result = &RegisterResult{
		User:                 entity.NewProfile(user, nil),
		Session:              session,
		RequiresVerification: session == nil,
	}
	if result.RequiresVerification {
		result.Message = pendingVerificationMessage
	}
	if result.RequiresVerification && s.verification != nil {
		if err := s.verification.SendCode(ctx, identity.Subject, identity.Email); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("subject", identity.Subject).Msg("[AuthService] Failed to send verification code")
		}
	}

	log.Ctx(ctx).Info().Uint("user_id", user.ID).Str("subject", identity.Subject).Msg("[AuthService] User registered")
	return result, nil
}

// Login authenticates with email and password and returns the reconciled profile.
func (s *AuthService) Login(ctx context.Context, email, password string, client manager.ClientInfo) (result *LoginResult, err error) {
	defer func() { metrics.RecordAuthEvent("login", apperrors.CodeOf(err), err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	identity, session, err := s.provider.SignInWithPassword(ctx, email, password, client)
	if err != nil {
		return nil, err
	}
	profile, err := s.reconciler.Reconcile(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: profile, Session: session}, nil
}

// CurrentSubject resolves a bearer token. It never fails: any problem yields nil.
func (s *AuthService) CurrentSubject(ctx context.Context, accessToken string) *Identity {
	if accessToken == "" {
		return nil
	}
	identity, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("[AuthService] Bearer token rejected")
		return nil
	}
	return identity
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client manager.ClientInfo) (session *manager.Session, err error) {
	defer func() { metrics.RecordAuthEvent("refresh", apperrors.CodeOf(err), err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", apperrors.ErrValidation)
	}
	_, session, err = s.provider.RefreshSession(ctx, refreshToken, client)
	return session, err
}

// Logout revokes the refresh token. Failures are logged only.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if err := s.provider.SignOut(ctx, refreshToken); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("[AuthService] Sign out failed")
	}
}

// Me returns the reconciled profile of the authenticated identity.
func (s *AuthService) Me(ctx context.Context, identity *Identity) (*entity.Profile, error) {
	return s.reconciler.Reconcile(ctx, identity)
}

// VerifyEmail confirms the identity registered under email.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (err error) {
	defer func() { metrics.RecordAuthEvent("verify_email", apperrors.CodeOf(err), err) }()

	if s.verification == nil {
		return fmt.Errorf("%w: email verification is disabled", apperrors.ErrValidation)
	}
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	identity, err := s.provider.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.EmailConfirmed {
		return nil
	}
	if err := s.verification.ConfirmCode(ctx, identity.Subject, code); err != nil {
		return err
	}
	if _, err := s.provider.ConfirmEmail(ctx, identity.Subject); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	log.Ctx(ctx).Info().Str("subject", identity.Subject).Msg("[AuthService] Email confirmed")
	return nil
}

// ResendVerification sends a new code unless the email is already confirmed.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if s.verification == nil {
		return fmt.Errorf("%w: email verification is disabled", apperrors.ErrValidation)
	}
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	identity, err := s.provider.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.EmailConfirmed {
		return nil
	}
	return s.verification.SendCode(ctx, identity.Subject, identity.Email)
}

// ChangeEmail updates the email at the provider and on the linked directory row.
// Admin grants are keyed by subject and are unaffected.
func (s *AuthService) ChangeEmail(ctx context.Context, identity *Identity, newEmail string) (*entity.Profile, error) {
	newEmail = normalizeEmail(newEmail)
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", apperrors.ErrValidation)
	}
	if newEmail == identity.Email {
		return s.reconciler.Reconcile(ctx, identity)
	}

	user, err := s.userRepo.GetByAuthUserID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := s.provider.UpdateEmail(ctx, identity.Subject, newEmail); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateEmail(ctx, user.ID, newEmail); err != nil {
		if revertErr := s.provider.UpdateEmail(ctx, identity.Subject, identity.Email); revertErr != nil {
			log.Ctx(ctx).Error().Err(revertErr).Str("subject", identity.Subject).
				Msg("[AuthService] Failed to revert provider email after directory update failure")
		}
		return nil, err
	}

	updated := *identity
	updated.Email = newEmail
	return s.reconciler.Reconcile(ctx, &updated)
}

// IssueWSTicket creates a short-lived websocket ticket for identity.
func (s *AuthService) IssueWSTicket(ctx context.Context, identity *Identity) (string, time.Time, error) {
	ticket, claims, err := s.jwtService.GenerateWSTicket(identity.Subject, identity.Email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate ws ticket: %w", err)
	}
	return ticket, claims.ExpiresAt.Time, nil
}

// ConsumeWSTicket validates a ticket and marks it used. Without a cache the
// one-time check is skipped.
func (s *AuthService) ConsumeWSTicket(ctx context.Context, ticket string) (*Identity, error) {
	claims, err := s.jwtService.ParseWSTicket(ticket)
	if err != nil {
		return nil, apperrors.NewAuthError(apperrors.CodeTokenInvalid, "Invalid websocket ticket", err)
	}
	if s.cache != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl <= 0 {
			ttl = time.Second
		}
		fresh, err := s.cache.SetNX(ctx, wsTicketKeyPrefix+claims.ID, claims.Subject, ttl)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("[AuthService] ws ticket replay check unavailable")
		} else if !fresh {
			return nil, apperrors.NewAuthError(apperrors.CodeTokenInvalid, "Websocket ticket already used", nil)
		}
	}
	return &Identity{Subject: claims.Subject, Email: claims.Email, EmailConfirmed: true}, nil
}
