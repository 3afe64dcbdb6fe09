package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/taskly/chat_backend/controllers"
	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/docs"
	"github.com/taskly/chat_backend/messaging"
	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/middleware"
	"github.com/taskly/chat_backend/presence"
	"github.com/taskly/chat_backend/pruner"
	"github.com/taskly/chat_backend/typing"
	"github.com/taskly/chat_backend/websocket"
)

// @title           Taskly Chat API
// @version         1.0
// @description     API Server for the Taskly chat backend
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize stores
	database.Connect()
	database.Migrate()
	database.ConnectRedis()

	presenceTracker := presence.NewTracker(database.RDB)
	typingTracker := typing.NewTracker(database.RDB)

	// Optional cross-instance relay
	var relay *messaging.Client
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		serverID := os.Getenv("SERVER_ID")
		if serverID == "" {
			serverID, _ = os.Hostname()
		}
		var err error
		relay, err = messaging.Connect(natsURL, serverID)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer relay.Close()
	}

	websocket.InitHub(presenceTracker, typingTracker, relay)
	controllers.PresenceTracker = presenceTracker

	// Retention sweeps: opportunistic after a room is opened, plus an
	// optional fixed-interval loop.
	scheduler := pruner.NewScheduler(database.DB, pruner.DefaultRetentionDays*24*time.Hour)
	controllers.PruneScheduler = scheduler
	websocket.PruneScheduler = scheduler
	if interval := os.Getenv("PRUNE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatalf("Invalid PRUNE_INTERVAL %q: %v", interval, err)
		}
		go pruner.Run(context.Background(), database.DB, d, pruner.DefaultRetentionDays*24*time.Hour)
	}

	// Set up Swagger info
	docs.SwaggerInfo.Host = "localhost:" + os.Getenv("PORT")
	if docs.SwaggerInfo.Host == "localhost:" {
		docs.SwaggerInfo.Host = "localhost:8080"
	}

	// Set up router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public routes
	public := router.Group("/api")
	{
		public.POST("/register", controllers.Register)
		public.POST("/login", controllers.Login)
		public.POST("/send-email", middleware.RateLimitEmail(), controllers.SendEmailHandler)
		public.POST("/send-password-reset", middleware.RateLimitEmail(), controllers.SendPasswordResetHandler)
	}

	// Protected routes
	api := router.Group("/api")
	api.Use(middleware.JWTAuth())
	{
		// User directory
		api.GET("/users", controllers.GetUsers)
		api.PUT("/users/profile", controllers.UpdateProfile)
		api.POST("/users/avatar", controllers.UploadAvatar)

		// Room routes
		api.GET("/rooms", controllers.GetRooms)
		api.POST("/rooms/general", controllers.EnsureGeneralRoom)
		api.GET("/rooms/:id", controllers.GetRoom)

		// Message routes
		api.GET("/messages", controllers.GetMessages)
		api.POST("/messages", controllers.CreateMessage)

		// Invite routes
		api.GET("/invites/incoming", controllers.GetIncomingInvites)
		api.GET("/invites/outgoing", controllers.GetOutgoingInvites)
		api.POST("/invites", controllers.SendInvite)
		api.POST("/invites/respond", controllers.RespondToInvite)
	}

	// WebSocket route
	router.GET("/ws", websocket.HandleConnection)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server running on port %s", port)
	log.Printf("Swagger documentation available at http://localhost:%s/swagger/index.html", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
