package errors

import (
	"errors"
	"fmt"
)

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации (неверные учетные данные, невалидный токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен (например, refresh) истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("resource state conflict")

	// ErrTooManyRequests is returned when a cooldown or attempt limit is hit.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrProvider wraps a rejection from the identity provider.
	ErrProvider = errors.New("identity provider error")
)

// Machine codes carried by AuthError and ProviderError.
const (
	CodeInvalidCredentials  = "invalid_credentials"
	CodeEmailNotConfirmed   = "email_not_confirmed"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeTokenInvalid        = "token_invalid"
	CodeWeakPassword        = "weak_password"
	CodeUserAlreadyExists   = "user_already_exists"
	CodeProviderUnavailable = "provider_unavailable"
)

// AuthError is an authentication failure with a stable machine code.
// It matches ErrUnauthorized with errors.Is.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// NewAuthError creates an AuthError.
func NewAuthError(code, message string, err error) *AuthError {
	return &AuthError{Code: code, Message: message, Err: err}
}

// ProviderError is a rejection coming from the identity provider.
// Detail holds the upstream text and is never sent to clients.
type ProviderError struct {
	Code    string
	Message string
	Detail  string
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return e.Message
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// NewProviderError creates a ProviderError.
func NewProviderError(code, message, detail string) *ProviderError {
	return &ProviderError{Code: code, Message: message, Detail: detail}
}

// CodeOf returns the machine code of an AuthError or ProviderError in the chain.
func CodeOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return ""
}
