// Command promote grants an admin role from the shell. It is how the first
// super_admin is created, since the HTTP route already requires one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/config"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/pkg/logger"
	pgRepo "github.com/yourusername/marketplace-api/internal/repository/postgres"
	"github.com/yourusername/marketplace-api/internal/service"
	"github.com/yourusername/marketplace-api/pkg/auth"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
	"github.com/yourusername/marketplace-api/pkg/database"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	email := flag.String("email", "", "email of the user to promote")
	userID := flag.String("user-id", "", "identity subject (UUID) to promote")
	role := flag.String("role", "admin", "role to grant")
	flag.Parse()

	if *email == "" && *userID == "" {
		fmt.Fprintln(os.Stderr, "one of -email or -user-id is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Log.Level, "console")

	adminService, err := newAdminService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	grant, err := adminService.Promote(ctx, service.PromoteInput{Email: *email, UserID: *userID, Role: *role})
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		log.Fatal().Msg("User is already an admin; use the admin API to change the role")
	case err != nil:
		log.Fatal().Err(err).Msg("Promotion failed")
	}
	log.Info().Str("grant_id", grant.ID).Str("subject", grant.UserID).Str("role", grant.Role).Msg("Admin granted")
}

func newAdminService(cfg *config.Config) (*service.AdminService, error) {
	db, err := database.NewPostgresDB(cfg.Database, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	userRepo, err := pgRepo.NewUserRepo(db)
	if err != nil {
		return nil, err
	}
	adminRepo, err := pgRepo.NewAdminRepo(db)
	if err != nil {
		return nil, err
	}
	identityRepo, err := pgRepo.NewAuthIdentityRepo(db)
	if err != nil {
		return nil, err
	}
	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		return nil, err
	}
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.KeyID, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL, cfg.JWT.WSTicketTTL)
	if err != nil {
		return nil, err
	}
	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo, cfg.Auth.RefreshTokenTTL, cfg.Auth.SessionLimit)
	if err != nil {
		return nil, err
	}
	provider, err := service.NewLocalIdentityProvider(identityRepo, jwtService, tokenManager, cfg.Auth.MinPasswordLength, cfg.Auth.RequireEmailConfirmation)
	if err != nil {
		return nil, err
	}
	return service.NewAdminService(adminRepo, userRepo, provider)
}
