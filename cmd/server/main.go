package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cliprelay/backend/config"
	"github.com/cliprelay/backend/internal/auth"
	"github.com/cliprelay/backend/internal/bot"
	"github.com/cliprelay/backend/internal/cache"
	"github.com/cliprelay/backend/internal/database"
	"github.com/cliprelay/backend/internal/handlers"
	"github.com/cliprelay/backend/internal/middleware"
	"github.com/cliprelay/backend/internal/queue"
	"github.com/cliprelay/backend/internal/repository"
	"github.com/cliprelay/backend/internal/resolver"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis; fall back to the in-process store so a single
	// instance still works without it
	var syncStore cache.SyncStore
	var limiter bot.ActionLimiter
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Running with in-memory sync registers - do not run multiple instances")
		syncStore = cache.NewMemoryStore()
	} else {
		syncStore = redis
		limiter = redis
		defer redis.Close()
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	streamerRepo := repository.NewStreamerRepository(db)
	mediaRepo := repository.NewMediaRequestRepository(db)

	// Queue service with the auto-skip/reap sweeper
	mediaResolver := resolver.New(cfg.Twitch.ClientID, cfg.Twitch.AccessToken)
	queueService := queue.NewService(mediaRepo, mediaResolver)
	queueService.StartSweeper(time.Second)
	defer queueService.Stop()

	// Chat bots
	botManager := bot.NewManager(queueService, streamerRepo, limiter)
	defer botManager.StopAll()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(streamerRepo, jwtService)
	queueHandler := handlers.NewQueueHandler(queueService)
	playerHandler := handlers.NewPlayerHandler(streamerRepo, syncStore, queueService, mediaRepo)
	botHandler := handlers.NewBotHandler(streamerRepo, botManager)

	// Initialize rate limiters
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitPerSec)
	rateLimiter.Cleanup()
	playerLimiter := middleware.NewRateLimiter(cfg.API.PlayerRateLimitPerSec)
	playerLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Player routes, keyed by player token instead of a JWT
	player := router.Group("/api")
	player.Use(middleware.TokenRateLimitMiddleware(playerLimiter))
	{
		player.GET("/queue/current-by-token", playerHandler.CurrentByToken)
		player.POST("/queue/complete-by-token", playerHandler.CompleteByToken)
		player.GET("/player/position", playerHandler.PositionByToken)
		player.POST("/player/position", playerHandler.ReportPosition)
		player.GET("/player/seek", playerHandler.ConsumeSeek)
		player.GET("/player/state", playerHandler.State)
		player.POST("/player/set-state", playerHandler.SetState)
		player.POST("/player/toggle", playerHandler.Toggle)
	}

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		api.GET("/me", authHandler.GetMe)

		// Queue routes
		api.POST("/queue/add", queueHandler.Add)
		api.GET("/queue/list", queueHandler.List)
		api.GET("/queue/current", queueHandler.Current)
		api.POST("/queue/skip", queueHandler.Skip)
		api.POST("/queue/complete", queueHandler.Complete)
		api.POST("/queue/clear", queueHandler.Clear)

		// Playback control routes
		api.GET("/player/position", playerHandler.Position)
		api.POST("/player/seek", playerHandler.RequestSeek)
		api.POST("/player/volume", playerHandler.SetVolume)
		api.POST("/player/reset-token", playerHandler.ResetToken)

		// Chat bot routes
		api.POST("/bot/connect", botHandler.Connect)
		api.POST("/bot/disconnect", botHandler.Disconnect)
		api.GET("/bot/status", botHandler.Status)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting ClipRelay server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
