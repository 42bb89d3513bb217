package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// EmailVerificationService issues and checks the one-time codes that move an
// identity out of the pending-verification state.
type EmailVerificationService struct {
	emailVerificationDB repository.EmailVerificationRepository
	emailService        EmailService
	verificationTTL     time.Duration
	resendCooldown      time.Duration
	maxAttempts         int
	codePepper          string
}

func NewEmailVerificationService(
	emailVerificationDB repository.EmailVerificationRepository,
	emailService EmailService,
	verificationTTL time.Duration,
	resendCooldown time.Duration,
	maxAttempts int,
	codePepper string,
) (*EmailVerificationService, error) {
	if emailVerificationDB == nil {
		return nil, fmt.Errorf("email verification repository is required")
	}
	if emailService == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if verificationTTL <= 0 {
		verificationTTL = 15 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &EmailVerificationService{
		emailVerificationDB: emailVerificationDB,
		emailService:        emailService,
		verificationTTL:     verificationTTL,
		resendCooldown:      resendCooldown,
		maxAttempts:         maxAttempts,
		codePepper:          codePepper,
	}, nil
}

// SendCode creates a new code for subject and mails it to email.
func (s *EmailVerificationService) SendCode(ctx context.Context, subject, email string) error {
	now := time.Now()
	latest, err := s.emailVerificationDB.GetLatestActiveBySubject(ctx, subject)
	if err == nil && latest != nil {
		if now.Before(latest.LastSentAt.Add(s.resendCooldown)) {
			return fmt.Errorf("%w: please wait before requesting a new code", ErrVerificationResendCooldown)
		}
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	salt, err := generateVerificationSalt()
	if err != nil {
		return fmt.Errorf("failed to generate verification salt: %w", err)
	}

	record := &entity.EmailVerificationCode{
		Subject:      subject,
		Email:        email,
		CodeHash:     hashVerificationCode(code, salt, s.codePepper),
		CodeSalt:     salt,
		ExpiresAt:    now.Add(s.verificationTTL),
		AttemptCount: 0,
		MaxAttempts:  s.maxAttempts,
		LastSentAt:   now,
	}
	if err := s.emailVerificationDB.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	idempotencyKey := fmt.Sprintf("email-verify:%s:%d", subject, record.ID)
	if err := s.emailService.SendVerificationCode(ctx, email, code, idempotencyKey); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// ConfirmCode checks code against the latest active record of subject and consumes it.
func (s *EmailVerificationService) ConfirmCode(ctx context.Context, subject, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty verification code", apperrors.ErrValidation)
	}

	record, err := s.emailVerificationDB.GetLatestActiveBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return err
	}

	now := time.Now()
	if record.IsConsumed() {
		return ErrInvalidVerificationCode
	}
	if record.IsExpired(now) {
		return ErrVerificationExpired
	}
	if record.AttemptCount >= record.MaxAttempts {
		return ErrVerificationAttemptsExceeded
	}

	expectedHash := hashVerificationCode(code, record.CodeSalt, s.codePepper)
	if subtle.ConstantTimeCompare([]byte(expectedHash), []byte(record.CodeHash)) != 1 {
		_ = s.emailVerificationDB.IncrementAttempts(ctx, record.ID)
		if record.AttemptCount+1 >= record.MaxAttempts {
			return ErrVerificationAttemptsExceeded
		}
		return ErrInvalidVerificationCode
	}

	if err := s.emailVerificationDB.MarkConsumed(ctx, record.ID); err != nil {
		return fmt.Errorf("failed to mark verification code consumed: %w", err)
	}
	return nil
}

// PurgeExpired deletes codes that ended before now minus retention.
func (s *EmailVerificationService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.emailVerificationDB.DeleteExpiredBefore(ctx, time.Now().Add(-retention))
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateVerificationSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashVerificationCode(code, salt, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
