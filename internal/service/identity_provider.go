package service

import (
	"context"

	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

// Identity is what the identity provider knows about a principal.
type Identity struct {
	Subject        string `json:"id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// IdentityProvider owns credentials and issues the canonical subject ID.
// Failures are *apperrors.AuthError, *apperrors.ProviderError or
// apperrors.ErrNotFound for lookups; anything else is infrastructure.
type IdentityProvider interface {
	// SignUp creates an identity. Session is nil while email confirmation is pending.
	SignUp(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error)
	SignInWithPassword(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error)
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	RefreshSession(ctx context.Context, refreshToken string, client manager.ClientInfo) (*Identity, *manager.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	DeleteUser(ctx context.Context, subject string) error
	GetUserByEmail(ctx context.Context, email string) (*Identity, error)
	ConfirmEmail(ctx context.Context, subject string) (*Identity, error)
	UpdateEmail(ctx context.Context, subject, email string) error
}
