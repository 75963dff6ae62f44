package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/raite-app/backend/internal/handlers"
	"github.com/raite-app/backend/internal/middleware"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/internal/services"
	"github.com/raite-app/backend/pkg/config"
	"github.com/raite-app/backend/pkg/firebase"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, fb *firebase.App) {
	// AutoMigrate PostgreSQL models
	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(db.Mongo.Database(cfg.MongoDatabase))
	notificationRepo := repositories.NewFirestoreNotificationRepository(fb.Firestore)
	messageRepo := repositories.NewRealtimeMessageRepository(fb.Realtime, cfg.MessagePollInterval)
	sessionRepo := repositories.NewFirestoreSessionRepository(fb.Firestore)

	// --- Initialize Services ---
	notificationService := services.NewNotificationService(notificationRepo, messageRepo, userRepo)
	chatService := services.NewChatService(sessionRepo, userRepo, notificationService)

	// --- Protected routes (require a Firebase ID token) ---
	api := e.Group("/api/v1")
	api.Use(middleware.FirebaseAuth(fb.AuthClient))
	log.Println("Firebase authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterUserRoutes(api)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, notificationService)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Chat routes
	chatHandler := handlers.NewChatHandler(chatService)
	chatHandler.RegisterChatRoutes(api)
	log.Println("Chat routes configured.")

	log.Println("All routes configured.")
}
