package service

import (
	"fmt"

	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidVerificationCode      = fmt.Errorf("%w: invalid_verification_code", apperrors.ErrValidation)
	ErrVerificationExpired          = fmt.Errorf("%w: verification_expired", apperrors.ErrValidation)
	ErrVerificationAttemptsExceeded = fmt.Errorf("%w: verification_attempts_exceeded", apperrors.ErrTooManyRequests)
	ErrVerificationResendCooldown   = fmt.Errorf("%w: verification_resend_cooldown", apperrors.ErrTooManyRequests)
	ErrProfileNotFound              = fmt.Errorf("%w: profile not found", apperrors.ErrNotFound)
)
