package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"support-bot/config"
	"support-bot/handlers"
	"support-bot/middleware"
	"support-bot/services"
	"support-bot/webhooks"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	// Initialize structured logger
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(logHandler))

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := services.InitMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Disconnect(ctx)

	// Initialize services
	services.InitServices(db, cfg.DatabaseName)

	// Load knowledge base for the classifier prompt
	knowledge := services.LoadKnowledge(cfg.KnowledgeBasePath)

	// Wire the support pipeline
	dedup := services.NewMemoryDedupStore(cfg.DedupWindow, cfg.DedupMaxEntries)
	conversationStore := services.NewMongoConversationStore(services.GetDatabase())
	tracker := services.NewTracker(conversationStore, cfg.HandoffTimeout)
	limiter := services.NewRateLimiter(30)
	classifier := services.NewOpenAIClassifier(cfg, limiter)
	storeStatus := services.NewMongoStoreStatus(services.GetDatabase())
	dispatcher := services.NewDispatcher(classifier, storeStatus, tracker, knowledge, cfg.ConfidenceThreshold)
	sender := services.NewWasapiSender(cfg)
	wsManager := services.NewWebSocketManager()
	supportService := services.NewSupportService(dedup, tracker, dispatcher, sender, wsManager)

	// Start background maintenance
	maintenanceCtx, cancelMaintenance := context.WithCancel(context.Background())
	defer cancelMaintenance()
	services.StartSessionCleanup(maintenanceCtx)
	services.StartHandoffSweeper(maintenanceCtx, tracker, cfg.HandoffTimeout, 15*time.Minute)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:5173, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	// Register webhook routes
	webhooks.RegisterRoutes(app, cfg, supportService)

	auth := app.Group("/auth")
	auth.Post("/login", handlers.Login)
	auth.Post("/logout", handlers.Logout)
	auth.Get("/me", middleware.RequireAuth, handlers.GetCurrentAgent)

	// Agent console endpoints (protected)
	agent := app.Group("/agent", middleware.RequireAuth)
	agent.Get("/conversations", handlers.GetConversations(supportService))
	agent.Post("/claim", handlers.ClaimConversation(supportService))
	agent.Post("/resolve", handlers.ResolveConversation(supportService))
	agent.Post("/message", handlers.SendAgentMessage(supportService))

	// Agent account management (protected)
	admin := app.Group("/admin", middleware.RequireAuth)
	admin.Post("/agents", handlers.CreateAgent)

	// WebSocket endpoint for the agent console (requires authentication)
	agent.Get("/ws", handlers.WebSocketUpgrade, websocket.New(handlers.HandleWebSocket(wsManager)))

	// Debug/ops endpoints for operational recovery (protected)
	debug := app.Group("/debug", middleware.RequireAuth)
	debug.Get("/dedup", handlers.GetDedupEntries(supportService))
	debug.Delete("/dedup", handlers.ClearDedupEntries(supportService))
	debug.Get("/conversations", handlers.GetDebugConversations(supportService))
	debug.Post("/conversations/:waID/reset", handlers.ResetConversation(supportService))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "support-bot",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})

	slog.Info("Server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
