package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"roadside-assist-server/config"
	"roadside-assist-server/database"
	"roadside-assist-server/jobs"
	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/routes"
	"roadside-assist-server/services"
	"roadside-assist-server/utils"
	ws "roadside-assist-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database (runs migrations)
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Security middleware stack
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Live event hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	dispatcher := services.NewNotificationDispatcher(database.DB, hub, config.AppConfig.Notify.SMSWebhookURL)
	jobService := services.NewJobService(database.DB, dispatcher, utils.NewOSRMRouter(), hub)
	bidService := services.NewBidService(database.DB, dispatcher)
	claimService := services.NewClaimService(database.DB,
		time.Duration(config.AppConfig.Claim.TokenTTLHours)*time.Hour, dispatcher)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Roadside Assist Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// WebSocket endpoint for live events and chat
	wsRoutes := router.Group("/ws")
	wsRoutes.Use(middleware.WebSocketAuthMiddleware())
	wsRoutes.GET("", func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		userType := "customer"
		if user.ProviderID != nil {
			userType = "provider"
		}
		ws.ServeWebSocket(hub, c.Writer, c.Request, user.ID, userType)
	})

	// API routes
	api := router.Group("/api/v1")
	{
		// Auth routes (no authentication required) - with strict rate limiting
		authRoutes := api.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimitMiddleware())
		routes.RegisterAuthRoutes(authRoutes)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Account routes
			routes.RegisterAccountRoutes(protected)

			// Job lifecycle and bidding
			jobRoutes := protected.Group("/jobs")
			routes.RegisterJobRoutes(jobRoutes, jobService)
			routes.RegisterBidRoutes(jobRoutes, bidService)

			// Claim a ghost job created on the caller's behalf
			routes.RegisterClaimRoutes(protected, claimService)

			// Dispatcher console (staff only)
			dispatchRoutes := protected.Group("/dispatch")
			dispatchRoutes.Use(middleware.RequireRoles(models.RoleDispatcher, models.RoleAdmin))
			routes.RegisterDispatchRoutes(dispatchRoutes, jobService, claimService)

			// Provider directory
			providerRoutes := protected.Group("/providers")
			routes.RegisterProviderRoutes(providerRoutes)

			// Notifications
			notificationRoutes := protected.Group("/notifications")
			routes.RegisterNotificationRoutes(notificationRoutes, dispatcher)

			// Job chat
			chatRoutes := protected.Group("/chat")
			routes.RegisterChatRoutes(chatRoutes, hub)
		}
	}

	// Start background jobs
	expirationJob := jobs.NewExpirationJob()
	expirationJob.Start()
	defer expirationJob.Stop()

	// Start token cleanup job
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			jwtService := services.NewJWTService(database.DB)
			if err := jwtService.CleanupExpiredTokens(); err != nil {
				log.Printf("❌ Token cleanup failed: %v", err)
			}
		}
	}()

	port := config.AppConfig.Server.Port
	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
