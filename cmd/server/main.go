package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"fulfillment-api/internal/api"
	"fulfillment-api/internal/config"
	"fulfillment-api/internal/database"
	"fulfillment-api/internal/marketplace"
	"fulfillment-api/internal/services"
	"fulfillment-api/pkg/logging"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logger := logging.NewStdLogger()

	// Initialize database and Redis
	db, rdb, err := database.Init(cfg, logger)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db, rdb, logger)

	// Stores
	plans := database.NewPlanStore(db, logger)
	events := database.NewWebhookStore(db, logger)
	templates := database.NewEmailTemplateStore(db)

	// Services
	client := marketplace.NewClient(cfg, logger)
	fulfillment := services.NewFulfillmentService(client, cfg, logger)
	cache := services.NewCacheService(rdb, logger)
	emails := services.NewEmailService(cfg, templates, plans, logger)
	planSync := services.NewPlanSyncService(plans, logger)
	webhooks := services.NewWebhookService(fulfillment, events, plans, emails, cache,
		cfg.WebhookSecret, cfg.AcceptSubscriptionUpdates, logger)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	handlers := api.NewHandlers(fulfillment, planSync, webhooks, cache, plans, events, templates, cfg, logger)
	api.SetupRoutes(r, handlers)

	// Start server
	logger.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
