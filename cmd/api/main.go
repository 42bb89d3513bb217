package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/config"
	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/handler"
	"github.com/yourusername/marketplace-api/internal/jobs"
	"github.com/yourusername/marketplace-api/internal/middleware"
	"github.com/yourusername/marketplace-api/internal/pkg/logger"
	pgRepo "github.com/yourusername/marketplace-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/marketplace-api/internal/repository/redis"
	"github.com/yourusername/marketplace-api/internal/service"
	"github.com/yourusername/marketplace-api/internal/storage"
	_ "github.com/yourusername/marketplace-api/internal/storage/local"
	_ "github.com/yourusername/marketplace-api/internal/storage/s3"
	ws "github.com/yourusername/marketplace-api/internal/websocket"
	"github.com/yourusername/marketplace-api/pkg/auth"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
	"github.com/yourusername/marketplace-api/pkg/database"
)

// Кэш списков справочников (категории, теги)
const lookupListCacheTTL = 5 * time.Minute

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database, cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Redis: кэш, rate limiting и рассылка WS-событий между инстансами
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo, err := pgRepo.NewUserRepo(db)
	fatalIf(err, "UserRepo")
	identityRepo, err := pgRepo.NewAuthIdentityRepo(db)
	fatalIf(err, "AuthIdentityRepo")
	adminRepo, err := pgRepo.NewAdminRepo(db)
	fatalIf(err, "AdminRepo")
	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	fatalIf(err, "RefreshTokenRepo")
	verificationRepo, err := pgRepo.NewEmailVerificationRepo(db)
	fatalIf(err, "EmailVerificationRepo")
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	fatalIf(err, "CacheRepo")

	// --- Токены и провайдер идентификации ---
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.KeyID, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL, cfg.JWT.WSTicketTTL)
	fatalIf(err, "JWTService")
	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo, cfg.Auth.RefreshTokenTTL, cfg.Auth.SessionLimit)
	fatalIf(err, "TokenManager")
	provider, err := service.NewLocalIdentityProvider(identityRepo, jwtService, tokenManager, cfg.Auth.MinPasswordLength, cfg.Auth.RequireEmailConfirmation)
	fatalIf(err, "LocalIdentityProvider")

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Provider == "resend" {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		fatalIf(err, "ResendEmailService")
		emailService = resendService
	}
	verificationService, err := service.NewEmailVerificationService(
		verificationRepo,
		emailService,
		cfg.Auth.VerificationCodeTTL,
		cfg.Auth.ResendCooldown,
		cfg.Auth.MaxVerificationAttempts,
		cfg.Auth.CodePepper,
	)
	fatalIf(err, "EmailVerificationService")

	// --- Сервисы ---
	reconciler, err := service.NewProfileReconciler(userRepo, adminRepo)
	fatalIf(err, "ProfileReconciler")
	authService, err := service.NewAuthService(provider, userRepo, reconciler, verificationService, jwtService, cacheRepo)
	fatalIf(err, "AuthService")
	adminService, err := service.NewAdminService(adminRepo, userRepo, provider)
	fatalIf(err, "AdminService")

	objectStore, err := storage.New(cfg)
	fatalIf(err, "Storage")
	uploadService, err := service.NewUploadService(objectStore, cfg.Storage.MaxUploadBytes)
	fatalIf(err, "UploadService")

	// Создаем контекст с отменой для фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- WebSocket ---
	pubSub, err := ws.NewRedisPubSub(redisClient)
	fatalIf(err, "RedisPubSub")
	wsHub := ws.NewHub(pubSub, ws.DefaultEventsChannel)
	if err := wsHub.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start WebSocket hub")
	}
	wsManager := ws.NewManager(wsHub)
	notifier, err := ws.NewNotifier(wsManager, userRepo)
	fatalIf(err, "Notifier")

	// --- Фоновые задачи ---
	cleanup, err := jobs.NewCleanup(cfg.Jobs.CleanupInterval, tokenManager, verificationService)
	fatalIf(err, "Cleanup jobs")
	cleanup.Start()

	// --- Обработчики ---
	h := &handlers{
		auth:   handler.NewAuthHandler(authService),
		admin:  handler.NewAdminHandler(adminService),
		upload: handler.NewUploadHandler(uploadService),
		ws:     handler.NewWSHandler(wsHub, wsManager, authService, cfg.CORS.AllowedOrigins),

		users:         newResource[entity.User](db, "users", handler.UsersResource),
		items:         newResource[entity.Item](db, "items", handler.ItemsResource),
		categories:    newResource(db, "categories", handler.CategoriesResource, service.WithListCache[entity.Category](cacheRepo, lookupListCacheTTL)),
		favorites:     newResource[entity.Favorite](db, "favorites", handler.FavoritesResource),
		wallets:       newResource[entity.Wallet](db, "wallets", handler.WalletsResource),
		messages:      newResource(db, "messages", handler.MessagesResource, service.WithAfterCreate(notifier.MessageCreated)),
		orders:        newResource[entity.Order](db, "orders", handler.OrdersResource),
		reviews:       newResource[entity.Review](db, "reviews", handler.ReviewsResource),
		addresses:     newResource[entity.Address](db, "addresses", handler.AddressesResource),
		payments:      newResource[entity.Payment](db, "payments", handler.PaymentsResource),
		notifications: newResource(db, "notifications", handler.NotificationsResource, service.WithAfterCreate(notifier.NotificationCreated)),
		images:        newResource[entity.Image](db, "images", handler.ImagesResource),
		tags:          newResource(db, "tags", handler.TagsResource, service.WithListCache[entity.Tag](cacheRepo, lookupListCacheTTL)),
		itemTags:      newResource[entity.ItemTag](db, "item_tags", handler.ItemTagsResource),
	}

	authMiddleware := middleware.NewAuthMiddleware(authService, adminService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	isProduction := gin.Mode() == gin.ReleaseMode
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Warn().Err(err).Msg("Failed to set trusted proxies")
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	registerRoutes(router, h, authMiddleware, rateLimiter, cfg)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	wsHub.Close()
	if err := cleanup.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error stopping cleanup jobs")
	}
	if err := pubSub.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing PubSub provider")
	}
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis client")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info().Msg("Server exited properly")
}

func fatalIf(err error, component string) {
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to initialize %s", component)
	}
}
