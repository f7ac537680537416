package router

import (
	"log"
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/handlers"
	"github.com/anonto42/niche-communities/backend/internal/middleware"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// Dependencies are the components the HTTP layer is built from
type Dependencies struct {
	Users             repositories.UserRepository
	PushSubscriptions repositories.PushSubscriptionRepository
	Provider          auth.Provider
	Sessions          *auth.Sessions
	Membership        *services.MembershipCoordinator
	Interactions      *services.InteractionCoordinator
	Notifications     *services.NotificationReader
	Reconciler        *services.Reconciler
	Uploader          handlers.ImageUploader // nil disables uploads
	JWTSecret         string
	VAPIDPublicKey    string
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(deps.Reconciler).HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "niche communities api"})
	})

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Provider, deps.Sessions, deps.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret, deps.Sessions))
	authHandler.RegisterSessionRoutes(api)

	userHandler := handlers.NewUserHandler(deps.Users, deps.Provider)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	communityHandler := handlers.NewCommunityHandler(deps.Membership)
	communityHandler.RegisterCommunityRoutes(api)
	log.Println("Community routes configured.")

	postHandler := handlers.NewPostHandler(deps.Interactions)
	postHandler.RegisterPostRoutes(api)

	commentHandler := handlers.NewCommentHandler(deps.Interactions)
	commentHandler.RegisterCommentRoutes(api)

	reactionHandler := handlers.NewReactionHandler(deps.Interactions)
	reactionHandler.RegisterReactionRoutes(api)
	log.Println("Post, comment and reaction routes configured.")

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications, deps.Sessions)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	uploadHandler := handlers.NewUploadHandler(deps.Uploader)
	uploadHandler.RegisterUploadRoutes(api)

	pushHandler := handlers.NewPushHandler(deps.PushSubscriptions, deps.VAPIDPublicKey)
	pushHandler.RegisterPushRoutes(api)

	log.Println("All routes configured.")
}
