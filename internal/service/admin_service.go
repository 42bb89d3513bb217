package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	"github.com/yourusername/marketplace-api/internal/metrics"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

const (
	maxRoleLength   = 50
	exportBatchSize = 500
)

// AdminService manages the admin registry.
type AdminService struct {
	adminRepo repository.AdminRepository
	userRepo  repository.UserRepository
	provider  IdentityProvider
}

// PromoteInput names the person to promote by email or by subject.
type PromoteInput struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ExportRow is one line of the user export.
type ExportRow struct {
	User      entity.User
	IsAdmin   bool
	AdminRole string
}

func NewAdminService(adminRepo repository.AdminRepository, userRepo repository.UserRepository, provider IdentityProvider) (*AdminService, error) {
	if adminRepo == nil {
		return nil, fmt.Errorf("AdminRepository is required for AdminService")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AdminService")
	}
	if provider == nil {
		return nil, fmt.Errorf("IdentityProvider is required for AdminService")
	}
	return &AdminService{adminRepo: adminRepo, userRepo: userRepo, provider: provider}, nil
}

func normalizeRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = entity.RoleAdmin
	}
	if len(role) > maxRoleLength {
		return "", fmt.Errorf("%w: role must be at most %d characters", apperrors.ErrValidation, maxRoleLength)
	}
	return role, nil
}

// Promote grants role to the person. A second grant for the same subject is
// rejected by the admins.user_id unique constraint as ErrConflict.
func (s *AdminService) Promote(ctx context.Context, input PromoteInput) (*entity.AdminGrant, error) {
	role, err := normalizeRole(input.Role)
	if err != nil {
		return nil, err
	}

	subject, err := s.resolveSubject(ctx, input)
	if err != nil {
		return nil, err
	}

	grant := &entity.AdminGrant{UserID: subject, Role: role}
	if err := s.adminRepo.Create(ctx, grant); err != nil {
		return nil, err
	}

	metrics.AdminGrantChangesTotal.WithLabelValues("promote").Inc()
	log.Ctx(ctx).Info().Str("subject", subject).Str("role", role).Msg("[AdminService] Admin granted")
	return grant, nil
}

func (s *AdminService) resolveSubject(ctx context.Context, input PromoteInput) (string, error) {
	userID := strings.TrimSpace(input.UserID)
	email := normalizeEmail(input.Email)

	switch {
	case userID != "":
		if _, err := uuid.Parse(userID); err != nil {
			return "", fmt.Errorf("%w: user_id must be a UUID", apperrors.ErrValidation)
		}
		return userID, nil
	case email != "":
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return "", fmt.Errorf("%w: no user with email %s", apperrors.ErrNotFound, email)
			}
			return "", err
		}
		if subject := user.Subject(); subject != "" {
			return subject, nil
		}
		identity, err := s.provider.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return "", fmt.Errorf("%w: no identity for email %s", apperrors.ErrNotFound, email)
			}
			return "", err
		}
		return identity.Subject, nil
	default:
		return "", fmt.Errorf("%w: email or user_id is required", apperrors.ErrValidation)
	}
}

// UpdateRole overwrites the role of an existing grant.
func (s *AdminService) UpdateRole(ctx context.Context, grantID, role string) (*entity.AdminGrant, error) {
	grantID = strings.TrimSpace(grantID)
	role = strings.TrimSpace(role)
	if grantID == "" || role == "" {
		return nil, fmt.Errorf("%w: id and role are required", apperrors.ErrValidation)
	}
	if _, err := uuid.Parse(grantID); err != nil {
		return nil, fmt.Errorf("%w: id must be a UUID", apperrors.ErrValidation)
	}
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}

	grant, err := s.adminRepo.UpdateRole(ctx, grantID, role)
	if err != nil {
		return nil, err
	}
	metrics.AdminGrantChangesTotal.WithLabelValues("update_role").Inc()
	return grant, nil
}

// Demote deletes the grant.
func (s *AdminService) Demote(ctx context.Context, grantID string) error {
	if _, err := uuid.Parse(strings.TrimSpace(grantID)); err != nil {
		return fmt.Errorf("%w: id must be a UUID", apperrors.ErrValidation)
	}
	if err := s.adminRepo.Delete(ctx, strings.TrimSpace(grantID)); err != nil {
		return err
	}
	metrics.AdminGrantChangesTotal.WithLabelValues("demote").Inc()
	log.Ctx(ctx).Info().Str("grant_id", grantID).Msg("[AdminService] Admin revoked")
	return nil
}

func (s *AdminService) List(ctx context.Context) ([]entity.AdminGrant, error) {
	return s.adminRepo.List(ctx)
}

// GrantFor returns the grant of subject, or ErrNotFound.
func (s *AdminService) GrantFor(ctx context.Context, subject string) (*entity.AdminGrant, error) {
	return s.adminRepo.GetBySubject(ctx, subject)
}

// ExportRows walks the whole directory and marks admins. emit is called once per row.
func (s *AdminService) ExportRows(ctx context.Context, emit func(ExportRow) error) error {
	grants, err := s.adminRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admin grants: %w", err)
	}
	roles := make(map[string]string, len(grants))
	for _, g := range grants {
		roles[g.UserID] = g.Role
	}

	for offset := 0; ; offset += exportBatchSize {
		users, err := s.userRepo.List(ctx, exportBatchSize, offset)
		if err != nil {
			return err
		}
		for _, u := range users {
			role, ok := roles[u.Subject()]
			if err := emit(ExportRow{User: u, IsAdmin: ok, AdminRole: role}); err != nil {
				return err
			}
		}
		if len(users) < exportBatchSize {
			return nil
		}
	}
}
