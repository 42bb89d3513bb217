package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/service"
)

// Ключи контекста Gin
const (
	ContextIdentity = "identity"
	ContextSubject  = "subject"
)

// SubjectResolver turns a bearer token into an identity, or nil.
type SubjectResolver interface {
	CurrentSubject(ctx context.Context, accessToken string) *service.Identity
}

// GrantLookup finds the admin grant of a subject.
type GrantLookup interface {
	GrantFor(ctx context.Context, subject string) (*entity.AdminGrant, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	resolver SubjectResolver
	grants   GrantLookup
}

// NewAuthMiddleware создает middleware аутентификации. grants may be nil if AdminOnly is unused.
func NewAuthMiddleware(resolver SubjectResolver, grants GrantLookup) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, grants: grants}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setIdentity(c *gin.Context, identity *service.Identity) {
	c.Set(ContextIdentity, identity)
	c.Set(ContextSubject, identity.Subject)
}

// IdentityFrom returns the identity stored by RequireAuth or OptionalAuth.
func IdentityFrom(c *gin.Context) *service.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*service.Identity)
	return identity
}

// RequireAuth проверяет, аутентифицирован ли пользователь
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_missing"})
			return
		}

		identity := m.resolver.CurrentSubject(c.Request.Context(), token)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid bearer token is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c); ok {
			if identity := m.resolver.CurrentSubject(c.Request.Context(), token); identity != nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// AdminOnly проверяет наличие записи в реестре администраторов.
// With roles given, the grant must carry one of them. Must run after RequireAuth.
func (m *AuthMiddleware) AdminOnly(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
			return
		}

		grant, err := m.grants.GrantFor(c.Request.Context(), identity.Subject)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				log.Ctx(c.Request.Context()).Warn().Err(err).Str("subject", identity.Subject).
					Msg("[AuthMiddleware] Admin registry lookup failed, denying")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required", "error_type": "forbidden"})
			return
		}
		if !grant.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient admin role", "error_type": "forbidden"})
			return
		}

		c.Next()
	}
}
