package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

// ProfileReconciler joins a provider identity with its directory row and admin grant.
type ProfileReconciler struct {
	userRepo  repository.UserRepository
	adminRepo repository.AdminRepository
}

func NewProfileReconciler(userRepo repository.UserRepository, adminRepo repository.AdminRepository) (*ProfileReconciler, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for ProfileReconciler")
	}
	if adminRepo == nil {
		return nil, fmt.Errorf("AdminRepository is required for ProfileReconciler")
	}
	return &ProfileReconciler{userRepo: userRepo, adminRepo: adminRepo}, nil
}

// Reconcile returns the profile of identity. A missing directory row is
// ErrProfileNotFound; registry failures degrade to isAdmin=false.
func (r *ProfileReconciler) Reconcile(ctx context.Context, identity *Identity) (*entity.Profile, error) {
	user, err := r.findDirectoryRow(ctx, identity)
	if err != nil {
		return nil, err
	}

	grant, err := r.adminRepo.GetBySubject(ctx, identity.Subject)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("subject", identity.Subject).
				Msg("[ProfileReconciler] Admin registry lookup failed, treating as non-admin")
		}
		grant = nil
	}
	return entity.NewProfile(user, grant), nil
}

func (r *ProfileReconciler) findDirectoryRow(ctx context.Context, identity *Identity) (*entity.User, error) {
	user, err := r.userRepo.GetByAuthUserID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("directory lookup by subject: %w", err)
	}

	// rows created before subjects were stored are matched by email once
	user, err = r.userRepo.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("directory lookup by email: %w", err)
	}

	switch {
	case user.AuthUserID == nil:
		if err := r.userRepo.LinkAuthUser(ctx, user.ID, identity.Subject); err != nil {
			log.Ctx(ctx).Warn().Err(err).Uint("user_id", user.ID).Str("subject", identity.Subject).
				Msg("[ProfileReconciler] Failed to backfill auth_user_id")
		} else {
			sub := identity.Subject
			user.AuthUserID = &sub
		}
		return user, nil
	case !user.IsLinkedTo(identity.Subject):
		log.Ctx(ctx).Warn().Uint("user_id", user.ID).Str("subject", identity.Subject).
			Msg("[ProfileReconciler] Directory row for email is linked to another subject")
		return nil, ErrProfileNotFound
	}
	return user, nil
}
