package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yourusername/marketplace-api/internal/config"
	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/handler"
	"github.com/yourusername/marketplace-api/internal/middleware"
	pgRepo "github.com/yourusername/marketplace-api/internal/repository/postgres"
	"github.com/yourusername/marketplace-api/internal/service"
)

type handlers struct {
	auth   *handler.AuthHandler
	admin  *handler.AdminHandler
	upload *handler.UploadHandler
	ws     *handler.WSHandler

	users         *handler.ResourceHandler[entity.User]
	items         *handler.ResourceHandler[entity.Item]
	categories    *handler.ResourceHandler[entity.Category]
	favorites     *handler.ResourceHandler[entity.Favorite]
	wallets       *handler.ResourceHandler[entity.Wallet]
	messages      *handler.ResourceHandler[entity.Message]
	orders        *handler.ResourceHandler[entity.Order]
	reviews       *handler.ResourceHandler[entity.Review]
	addresses     *handler.ResourceHandler[entity.Address]
	payments      *handler.ResourceHandler[entity.Payment]
	notifications *handler.ResourceHandler[entity.Notification]
	images        *handler.ResourceHandler[entity.Image]
	tags          *handler.ResourceHandler[entity.Tag]
	itemTags      *handler.ResourceHandler[entity.ItemTag]
}

// newResource wires repo, service and handler for one table.
func newResource[T any](db *gorm.DB, table string, cfg handler.ResourceConfig, opts ...service.ResourceOption[T]) *handler.ResourceHandler[T] {
	repo, err := pgRepo.NewResourceRepo[T](db, table)
	fatalIf(err, table+" repository")
	svc, err := service.NewResourceService[T](table, repo, opts...)
	fatalIf(err, table+" service")
	return handler.NewResourceHandler[T](svc, cfg)
}

func registerRoutes(router *gin.Engine, h *handlers, authMW *middleware.AuthMiddleware, rl *middleware.RateLimiter, cfg *config.Config) {
	requireAuth := authMW.RequireAuth()
	adminWrite := authMW.AdminOnly(entity.RoleAdmin, entity.RoleSuperAdmin)

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if cfg.Storage.Backend == "local" {
		router.Static(cfg.Storage.Local.URLPrefix, cfg.Storage.Local.BaseDir)
	}

	publicRead := authMW.OptionalAuth()

	// Аутентификация
	authGroup := router.Group("/auth")
	{
		strict := rl.Limit(middleware.StrictAuthRateLimitConfig(cfg.Auth.RateLimitPerMinute))
		authGroup.POST("/register", strict, h.auth.Register)
		authGroup.POST("/login", strict, h.auth.Login)
		authGroup.POST("/refresh", h.auth.Refresh)
		authGroup.POST("/logout", h.auth.Logout)
		authGroup.POST("/verify-email", strict, h.auth.VerifyEmail)
		authGroup.POST("/resend-verification", strict, h.auth.ResendVerification)

		authed := authGroup.Group("")
		authed.Use(requireAuth)
		{
			authed.GET("/me", h.auth.Me)
			authed.PUT("/email", h.auth.ChangeEmail)
			authed.GET("/ws-ticket", h.auth.GetWSTicket)
		}
	}

	// Реестр администраторов
	admins := router.Group("/admins")
	admins.Use(requireAuth, authMW.AdminOnly())
	{
		admins.GET("", h.admin.ListAdmins)
		admins.GET("/export", h.admin.ExportUsers)
		admins.POST("", adminWrite, h.admin.Promote)
		admins.PUT("", adminWrite, h.admin.UpdateRole)
		admins.DELETE("/:id", adminWrite, middleware.ExtractUUIDParam("id", middleware.ContextGrantID), h.admin.Demote)
	}

	upload := router.Group("/upload")
	upload.Use(requireAuth, rl.LimitByIP(middleware.UploadRateLimitConfig()))
	{
		upload.POST("", h.upload.UploadImage)
	}

	// Ресурсы маркетплейса: чтение публичное, запись после аутентификации
	users := router.Group("/users")
	{
		users.GET("", publicRead, h.users.List)
		users.GET("/:id", publicRead, h.users.Get)
		users.PUT("", requireAuth, h.users.Update)
	}

	items := router.Group("/items")
	{
		items.GET("", publicRead, h.items.List)
		items.GET("/:id", publicRead, h.items.Get)
		items.POST("", requireAuth, h.items.Create)
		items.PUT("", requireAuth, h.items.Update)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", publicRead, h.categories.List)
		categories.GET("/:id", publicRead, h.categories.Get)
		categories.POST("", requireAuth, h.categories.Create)
		categories.PUT("", requireAuth, h.categories.Update)
	}

	favorites := router.Group("/favorites")
	{
		favorites.GET("", publicRead, h.favorites.List)
		favorites.POST("", requireAuth, h.favorites.Create)
		favorites.DELETE("", requireAuth, h.favorites.Delete)
	}

	wallets := router.Group("/wallets")
	{
		wallets.GET("", publicRead, h.wallets.List)
		wallets.POST("", requireAuth, h.wallets.Create)
		wallets.PUT("", requireAuth, h.wallets.Update)
	}

	messages := router.Group("/messages")
	{
		messages.GET("", publicRead, h.messages.List)
		messages.POST("", requireAuth, h.messages.Create)
	}

	orders := router.Group("/orders")
	{
		orders.GET("", publicRead, h.orders.List)
		orders.POST("", requireAuth, h.orders.Create)
		orders.PUT("", requireAuth, h.orders.Update)
	}

	reviews := router.Group("/reviews")
	{
		reviews.GET("", publicRead, h.reviews.List)
		reviews.POST("", requireAuth, h.reviews.Create)
		reviews.PUT("", requireAuth, h.reviews.Update)
	}

	addresses := router.Group("/addresses")
	{
		addresses.GET("", publicRead, h.addresses.List)
		addresses.POST("", requireAuth, h.addresses.Create)
		addresses.PUT("", requireAuth, h.addresses.Update)
	}

	payments := router.Group("/payments")
	{
		payments.GET("", publicRead, h.payments.List)
		payments.POST("", requireAuth, h.payments.Create)
		payments.PUT("", requireAuth, h.payments.Update)
	}

	notifications := router.Group("/notifications")
	{
		notifications.GET("", publicRead, h.notifications.List)
		notifications.POST("", requireAuth, h.notifications.Create)
		notifications.PUT("/read", requireAuth, h.notifications.Set(handler.MarkRead))
	}

	images := router.Group("/images")
	{
		images.GET("", publicRead, h.images.List)
		images.GET("/item/:item_id", publicRead, h.images.ListBy("item_id"))
		images.POST("", requireAuth, h.images.Create)
		images.PUT("", requireAuth, h.images.Update)
	}

	tags := router.Group("/tags")
	{
		tags.GET("", publicRead, h.tags.List)
		tags.POST("", requireAuth, h.tags.Create)
		tags.PUT("", requireAuth, h.tags.Update)
	}

	itemTags := router.Group("/item_tags")
	{
		itemTags.GET("", publicRead, h.itemTags.List)
		itemTags.POST("", requireAuth, h.itemTags.Create)
		itemTags.DELETE("", requireAuth, h.itemTags.Delete)
	}

	// WebSocket маршрут (?ticket=...)
	router.GET("/ws", h.ws.HandleConnection)
}
