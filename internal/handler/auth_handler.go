package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/middleware"
	"github.com/yourusername/marketplace-api/internal/service"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

// AuthAPI is the part of service.AuthService the HTTP layer needs.
type AuthAPI interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, email, password string, client manager.ClientInfo) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client manager.ClientInfo) (*manager.Session, error)
	Logout(ctx context.Context, refreshToken string)
	Me(ctx context.Context, identity *service.Identity) (*entity.Profile, error)
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	ChangeEmail(ctx context.Context, identity *service.Identity, newEmail string) (*entity.Profile, error)
	IssueWSTicket(ctx context.Context, identity *service.Identity) (string, time.Time, error)
}

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService AuthAPI
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService AuthAPI) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest содержит данные для регистрации
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// LoginRequest содержит данные для входа
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token in the body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func clientInfo(c *gin.Context) manager.ClientInfo {
	return manager.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// Register обрабатывает запрос на регистрацию
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.FullName,
		Username:    req.Username,
		Client:      clientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh обменивает refresh-токен на новую пару токенов
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout always succeeds; a bad or missing token is ignored.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		log.Ctx(c.Request.Context()).Debug().Err(err).Msg("[AuthHandler] Logout body ignored")
	}
	if req.RefreshToken != "" {
		h.authService.Logout(c.Request.Context(), req.RefreshToken)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me возвращает профиль текущего пользователя с признаком администратора
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "token_missing"})
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// VerifyEmail подтверждает email по коду
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
}

// ResendVerification отправляет код подтверждения повторно
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.ResendVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// ChangeEmail меняет email у провайдера и в справочнике пользователей
func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "token_missing"})
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.authService.ChangeEmail(c.Request.Context(), identity, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetWSTicket выдает одноразовый тикет для подключения к WebSocket
func (h *AuthHandler) GetWSTicket(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "token_missing"})
		return
	}

	ticket, expiresAt, err := h.authService.IssueWSTicket(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "expires_at": expiresAt})
}
