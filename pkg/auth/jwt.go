package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	usageAccess    = "access"
	usageWSTicket  = "websocket_auth"
	accessAudience = "marketplace-user"
	wsAudience     = "marketplace-ws"
)

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenWrongType = errors.New("token has wrong usage")
)

// JWTCustomClaims содержит пользовательские поля для токена.
// Subject is the identity provider's canonical subject (UUID).
type JWTCustomClaims struct {
	Email string `json:"email"`
	Usage string `json:"usage,omitempty"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT
type JWTService struct {
	secret         []byte
	keyID          string
	issuer         string
	accessTTL      time.Duration
	wsTicketExpiry time.Duration
}

// NewJWTService создает новый сервис JWT
func NewJWTService(secret, keyID, issuer string, accessTTL, wsTicketTTL time.Duration) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if keyID == "" {
		keyID = "default"
	}
	if issuer == "" {
		issuer = "marketplace-api"
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if wsTicketTTL <= 0 {
		wsTicketTTL = 60 * time.Second
	}
	return &JWTService{
		secret:         []byte(secret),
		keyID:          keyID,
		issuer:         issuer,
		accessTTL:      accessTTL,
		wsTicketExpiry: wsTicketTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken создает токен доступа для субъекта
func (s *JWTService) GenerateAccessToken(subject, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := &JWTCustomClaims{
		Email: email,
		Usage: usageAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{accessAudience},
		},
	}
	signed, err := s.sign(claims)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("[JWT] Ошибка генерации токена доступа")
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateWSTicket создает короткоживущий тикет для WebSocket подключения.
// The jti lets the caller enforce one-time use.
func (s *JWTService) GenerateWSTicket(subject, email string) (string, *JWTCustomClaims, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		Email: email,
		Usage: usageWSTicket,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.wsTicketExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{wsAudience},
		},
	}
	signed, err := s.sign(claims)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("[JWT] Ошибка генерации WS-тикета")
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken проверяет токен доступа
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	return s.parse(tokenString, usageAccess, accessAudience)
}

// ParseWSTicket проверяет WS-тикет
func (s *JWTService) ParseWSTicket(ticketString string) (*JWTCustomClaims, error) {
	return s.parse(ticketString, usageWSTicket, wsAudience)
}

func (s *JWTService) sign(claims *JWTCustomClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.keyID
	return token.SignedString(s.secret)
}

func (s *JWTService) parse(tokenString, usage, audience string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if kid, _ := token.Header["kid"].(string); kid != s.keyID {
			return nil, fmt.Errorf("validation key with id '%s' not found", kid)
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		log.Debug().Err(err).Msg("[JWT] Ошибка при разборе токена")
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Usage != usage || !claims.VerifyAudience(audience, true) {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}
